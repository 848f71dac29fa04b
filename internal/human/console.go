package human

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"polymarket-updown-bot/internal/interfaces"
	"polymarket-updown-bot/internal/logger"
	"polymarket-updown-bot/internal/types"
)

var _ interfaces.Human = (*Console)(nil)

// Console is the stdin/stdout operator interface. Reads run on their own
// goroutine so a cancelled context unblocks the orchestrator even while the
// operator is away from the keyboard.
type Console struct {
	in    *bufio.Scanner
	out   io.Writer
	lines chan string
}

// NewConsole wires the collaborator to a reader and writer, normally
// os.Stdin and os.Stdout.
func NewConsole(in io.Reader, out io.Writer) *Console {
	c := &Console{
		in:    bufio.NewScanner(in),
		out:   out,
		lines: make(chan string),
	}
	go func() {
		defer close(c.lines)
		for c.in.Scan() {
			c.lines <- strings.TrimSpace(c.in.Text())
		}
	}()
	return c
}

// ConfirmTrade prints the full decision context and blocks for a yes/no.
func (c *Console) ConfirmTrade(ctx context.Context, rec types.DecisionRecord, stake float64, currentPrice, priceToBeat float64, secondsLeft, winStreak int) (bool, error) {
	fmt.Fprintf(c.out, "\n=== TRADE CONFIRMATION ===\n")
	fmt.Fprintf(c.out, "Decision:      %s (rule: %s)\n", rec.Decision, rec.Rule)
	fmt.Fprintf(c.out, "Stake:         $%.2f (win streak %d)\n", stake, winStreak)
	fmt.Fprintf(c.out, "Current price: %.2f\n", currentPrice)
	fmt.Fprintf(c.out, "Price to beat: %.2f (gap %.2f, gap/ATR %.2f)\n", priceToBeat, rec.Gap, rec.GapATR)
	fmt.Fprintf(c.out, "Seconds left:  %d\n", secondsLeft)
	for _, line := range rec.Reasoning {
		fmt.Fprintf(c.out, "  - %s\n", line)
	}
	fmt.Fprintf(c.out, "Execute? [y/N]: ")

	answer, err := c.readLine(ctx)
	if err != nil {
		return false, err
	}
	approved := strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes")
	if !approved {
		logger.Info(ctx, "trade declined by operator")
	}
	return approved, nil
}

// AskMarketInfo collects the strike and countdown by hand when the page
// could not be parsed.
func (c *Console) AskMarketInfo(ctx context.Context) (float64, int, error) {
	fmt.Fprintf(c.out, "\nAutomatic page parsing failed.\n")

	fmt.Fprintf(c.out, "Enter price to beat: ")
	priceToBeat, err := c.readFloat(ctx)
	if err != nil {
		return 0, 0, err
	}

	fmt.Fprintf(c.out, "Enter seconds remaining: ")
	secondsLeft, err := c.readInt(ctx)
	if err != nil {
		return 0, 0, err
	}
	return priceToBeat, secondsLeft, nil
}

// AskResult collects W/L/S after the round settles.
func (c *Console) AskResult(ctx context.Context) (types.Result, error) {
	for {
		fmt.Fprintf(c.out, "\nRound settled. Result? [W/L/S]: ")
		answer, err := c.readLine(ctx)
		if err != nil {
			return "", err
		}
		switch strings.ToUpper(answer) {
		case "W":
			return types.ResultWin, nil
		case "L":
			return types.ResultLoss, nil
		case "S":
			return types.ResultSkip, nil
		}
		fmt.Fprintf(c.out, "Please answer W, L or S.\n")
	}
}

func (c *Console) readLine(ctx context.Context) (string, error) {
	select {
	case line, ok := <-c.lines:
		if !ok {
			return "", fmt.Errorf("operator input closed")
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Console) readFloat(ctx context.Context) (float64, error) {
	for {
		line, err := c.readLine(ctx)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(line, ",", ""), 64)
		if err == nil && v > 0 {
			return v, nil
		}
		fmt.Fprintf(c.out, "Not a positive number, try again: ")
	}
}

func (c *Console) readInt(ctx context.Context) (int, error) {
	for {
		line, err := c.readLine(ctx)
		if err != nil {
			return 0, err
		}
		v, err := strconv.Atoi(line)
		if err == nil && v >= 0 {
			return v, nil
		}
		fmt.Fprintf(c.out, "Not a non-negative integer, try again: ")
	}
}
