package gamma

import (
	"encoding/json"
	"strings"

	"polymarket-updown-bot/internal/types"
)

// TokenAnchor is what a market detail record yields for order placement:
// the CLOB token id per direction when the payload exposes them, or at
// minimum the condition id.
type TokenAnchor struct {
	TokenIDs    map[types.Direction]string
	ConditionID string
	Verified    bool
}

// ResolveTokens extracts direction token ids from a market detail record.
// Three payload shapes are recognized, tried in order:
//
//  1. tokens[] of objects carrying token_id and outcome
//  2. parallel outcomes / clobTokenIds arrays (either real arrays or
//     JSON-encoded strings, both of which Gamma has shipped)
//  3. a bare conditionId with no per-direction ids
//
// A record matching none of them reports ok=false; the caller proceeds
// unverified rather than guessing.
func ResolveTokens(detail map[string]any) (TokenAnchor, bool) {
	anchor := TokenAnchor{ConditionID: stringField(detail, "conditionId")}

	if ids, ok := tokensFromObjects(detail); ok {
		anchor.TokenIDs = ids
		anchor.Verified = true
		return anchor, true
	}
	if ids, ok := tokensFromParallelArrays(detail); ok {
		anchor.TokenIDs = ids
		anchor.Verified = true
		return anchor, true
	}
	if anchor.ConditionID != "" {
		return anchor, true
	}
	return TokenAnchor{}, false
}

func tokensFromObjects(detail map[string]any) (map[types.Direction]string, bool) {
	raw, ok := detail["tokens"].([]any)
	if !ok || len(raw) == 0 {
		return nil, false
	}
	ids := make(map[types.Direction]string)
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		id := firstStringField(m, "token_id", "tokenId")
		dir, ok := directionForOutcome(firstStringField(m, "outcome", "name"))
		if id == "" || !ok {
			continue
		}
		ids[dir] = id
	}
	if len(ids) != 2 {
		return nil, false
	}
	return ids, true
}

func tokensFromParallelArrays(detail map[string]any) (map[types.Direction]string, bool) {
	outcomes, ok := stringList(detail["outcomes"])
	if !ok {
		return nil, false
	}
	tokenIDs, ok := stringList(detail["clobTokenIds"])
	if !ok || len(outcomes) != len(tokenIDs) {
		return nil, false
	}
	ids := make(map[types.Direction]string)
	for i, outcome := range outcomes {
		dir, ok := directionForOutcome(outcome)
		if !ok || tokenIDs[i] == "" {
			continue
		}
		ids[dir] = tokenIDs[i]
	}
	if len(ids) != 2 {
		return nil, false
	}
	return ids, true
}

// stringList accepts either a real JSON array of strings or an array that
// was serialized into a string field.
func stringList(v any) ([]string, bool) {
	switch tv := v.(type) {
	case []any:
		out := make([]string, 0, len(tv))
		for _, e := range tv {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, len(out) > 0
	case string:
		var out []string
		if err := json.Unmarshal([]byte(tv), &out); err != nil {
			return nil, false
		}
		return out, len(out) > 0
	}
	return nil, false
}

func directionForOutcome(outcome string) (types.Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(outcome)) {
	case "up", "yes":
		return types.DirectionUp, true
	case "down", "no":
		return types.DirectionDown, true
	}
	return "", false
}
