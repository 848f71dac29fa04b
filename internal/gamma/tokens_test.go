package gamma

import (
	"testing"

	"polymarket-updown-bot/internal/types"
)

func TestResolveTokensFromTokenObjects(t *testing.T) {
	detail := map[string]any{
		"conditionId": "0xabc123",
		"tokens": []any{
			map[string]any{"token_id": "111", "outcome": "Up"},
			map[string]any{"token_id": "222", "outcome": "Down"},
		},
	}
	anchor, ok := ResolveTokens(detail)
	if !ok || !anchor.Verified {
		t.Fatal("expected verified anchor from tokens[] shape")
	}
	if anchor.TokenIDs[types.DirectionUp] != "111" || anchor.TokenIDs[types.DirectionDown] != "222" {
		t.Errorf("unexpected token map: %v", anchor.TokenIDs)
	}
	if anchor.ConditionID != "0xabc123" {
		t.Errorf("unexpected condition id: %s", anchor.ConditionID)
	}
}

func TestResolveTokensFromParallelArrays(t *testing.T) {
	detail := map[string]any{
		"outcomes":     []any{"Down", "Up"},
		"clobTokenIds": []any{"999", "888"},
	}
	anchor, ok := ResolveTokens(detail)
	if !ok || !anchor.Verified {
		t.Fatal("expected verified anchor from parallel arrays")
	}
	if anchor.TokenIDs[types.DirectionDown] != "999" || anchor.TokenIDs[types.DirectionUp] != "888" {
		t.Errorf("unexpected token map: %v", anchor.TokenIDs)
	}
}

func TestResolveTokensFromJSONEncodedArrays(t *testing.T) {
	detail := map[string]any{
		"outcomes":     `["Up","Down"]`,
		"clobTokenIds": `["135","246"]`,
	}
	anchor, ok := ResolveTokens(detail)
	if !ok || !anchor.Verified {
		t.Fatal("expected verified anchor from JSON-encoded arrays")
	}
	if anchor.TokenIDs[types.DirectionUp] != "135" || anchor.TokenIDs[types.DirectionDown] != "246" {
		t.Errorf("unexpected token map: %v", anchor.TokenIDs)
	}
}

func TestResolveTokensBareConditionID(t *testing.T) {
	anchor, ok := ResolveTokens(map[string]any{"conditionId": "0xdef"})
	if !ok {
		t.Fatal("bare conditionId should still resolve")
	}
	if anchor.Verified {
		t.Error("conditionId alone must not count as verified")
	}
	if anchor.ConditionID != "0xdef" {
		t.Errorf("unexpected condition id: %s", anchor.ConditionID)
	}
}

func TestResolveTokensNoShape(t *testing.T) {
	cases := []map[string]any{
		{},
		{"tokens": []any{map[string]any{"token_id": "1", "outcome": "Up"}}}, // only one side
		{"outcomes": []any{"Up", "Down"}, "clobTokenIds": []any{"1"}},       // length mismatch
		{"outcomes": `not json`, "clobTokenIds": `["1","2"]`},
	}
	for i, detail := range cases {
		if _, ok := ResolveTokens(detail); ok {
			t.Errorf("case %d: expected no shape match", i)
		}
	}
}
