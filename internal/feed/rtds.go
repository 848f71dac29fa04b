package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"polymarket-updown-bot/internal/interfaces"
	"polymarket-updown-bot/internal/logger"
	"polymarket-updown-bot/internal/types"
)

const (
	priceTopic = "crypto_prices_chainlink"

	// Ticks pile up between orchestrator polls; the queue is bounded and
	// drops the oldest observations when the consumer stalls.
	maxQueuedTicks = 10000

	dialTimeout  = 10 * time.Second
	readDeadline = 60 * time.Second

	defaultMaxRetries = 5
)

// RTDSFeed streams real-time asset prices over the public websocket and
// queues them for one-shot draining. Reconnects with exponential backoff,
// giving up after a bounded number of attempts.
type RTDSFeed struct {
	url        string
	symbol     string
	maxRetries int

	queueMu sync.Mutex
	queue   []types.PriceTick
	dropped int

	cancel context.CancelFunc
	done   chan struct{}
}

var _ interfaces.PriceFeed = (*RTDSFeed)(nil)

// NewRTDSFeed creates a feed for one asset. symbol may be a bare asset
// ("btc") or a full pair ("btc/usd"); the bare form subscribes to the usd
// pair. maxRetries caps each connect's backoff attempts; values below one
// fall back to the default.
func NewRTDSFeed(url, symbol string, maxRetries int) *RTDSFeed {
	s := strings.ToLower(symbol)
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	if maxRetries < 1 {
		maxRetries = defaultMaxRetries
	}
	return &RTDSFeed{
		url:        url,
		symbol:     s,
		maxRetries: maxRetries,
	}
}

// Start connects and begins queueing ticks. Returns once the first
// connection attempt resolves; reconnection afterwards is automatic.
func (f *RTDSFeed) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.done = make(chan struct{})

	conn, err := f.connect(runCtx)
	if err != nil {
		cancel()
		close(f.done)
		return fmt.Errorf("failed to open price stream: %w", err)
	}

	go f.run(runCtx, conn)
	return nil
}

// Drain returns every queued tick and empties the queue.
func (f *RTDSFeed) Drain() []types.PriceTick {
	f.queueMu.Lock()
	defer f.queueMu.Unlock()
	out := f.queue
	f.queue = nil
	return out
}

// Stop tears the stream down and waits for the read loop to exit, bounded
// by ctx.
func (f *RTDSFeed) Stop(ctx context.Context) {
	if f.cancel == nil {
		return
	}
	f.cancel()
	select {
	case <-f.done:
	case <-ctx.Done():
		logger.Warn(ctx, "price stream did not stop in time", "symbol", f.symbol)
	}
}

func (f *RTDSFeed) run(ctx context.Context, conn *websocket.Conn) {
	defer close(f.done)
	for {
		f.readLoop(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return
		}

		logger.Warn(ctx, "price stream disconnected, reconnecting", "symbol", f.symbol)
		next, err := f.connect(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logger.ErrorWithErr(ctx, "price stream reconnection failed", err, "symbol", f.symbol)
			}
			return
		}
		conn = next
	}
}

// connect dials and subscribes, retrying with exponential backoff capped at
// 30s for up to maxRetries attempts.
func (f *RTDSFeed) connect(ctx context.Context) (*websocket.Conn, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.Multiplier = 2
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = 0

	var conn *websocket.Conn
	op := func() error {
		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()
		c, _, err := websocket.DefaultDialer.DialContext(dialCtx, f.url, nil)
		if err != nil {
			logger.Debug(ctx, "price stream dial failed, will retry",
				"symbol", f.symbol, "error", err.Error())
			return err
		}
		if err := f.subscribe(c); err != nil {
			c.Close()
			return err
		}
		conn = c
		return nil
	}
	bounded := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(f.maxRetries-1)), ctx)
	if err := backoff.Retry(op, bounded); err != nil {
		logger.Warn(ctx, "price stream giving up after retries",
			"symbol", f.symbol, "max_retries", f.maxRetries, "error", err.Error())
		return nil, err
	}
	logger.Info(ctx, "price stream connected", "symbol", f.symbol, "topic", priceTopic)
	return conn, nil
}

func (f *RTDSFeed) subscribe(conn *websocket.Conn) error {
	msg := map[string]any{
		"action": "subscribe",
		"subscriptions": []map[string]any{
			{
				"topic":   priceTopic,
				"type":    "update",
				"filters": fmt.Sprintf(`{"symbol":"%s/usd"}`, f.symbol),
			},
		},
	}
	return conn.WriteJSON(msg)
}

func (f *RTDSFeed) readLoop(ctx context.Context, conn *websocket.Conn) {
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	for {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		for _, tick := range ParseTicks(data) {
			if !f.matchesSymbol(tick.Symbol) {
				continue
			}
			f.enqueue(tick)
		}
	}
}

func (f *RTDSFeed) matchesSymbol(symbol string) bool {
	s := strings.ToLower(symbol)
	return s == f.symbol || strings.HasPrefix(s, f.symbol+"/")
}

func (f *RTDSFeed) enqueue(tick types.PriceTick) {
	f.queueMu.Lock()
	defer f.queueMu.Unlock()
	if len(f.queue) >= maxQueuedTicks {
		f.queue = f.queue[1:]
		f.dropped++
	}
	f.queue = append(f.queue, tick)
}

// streamMessage is the envelope the price topic publishes. The payload is
// either a single observation or a batch.
type streamMessage struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

type priceObservation struct {
	Symbol    string  `json:"symbol"`
	Value     float64 `json:"value"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"`
}

// ParseTicks extracts price observations from one raw stream message.
// Messages from other topics, malformed payloads, and observations without
// a usable price all yield nothing.
func ParseTicks(data []byte) []types.PriceTick {
	var msg streamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil
	}
	if msg.Topic != "" && msg.Topic != priceTopic {
		return nil
	}
	if len(msg.Payload) == 0 {
		return nil
	}

	var batch []priceObservation
	if err := json.Unmarshal(msg.Payload, &batch); err != nil {
		var single priceObservation
		if err := json.Unmarshal(msg.Payload, &single); err != nil {
			return nil
		}
		batch = []priceObservation{single}
	}

	out := make([]types.PriceTick, 0, len(batch))
	for _, obs := range batch {
		price := obs.Value
		if price == 0 {
			price = obs.Price
		}
		if price <= 0 || obs.Symbol == "" {
			continue
		}
		out = append(out, types.PriceTick{
			Symbol:    obs.Symbol,
			Price:     price,
			Timestamp: observationTime(obs.Timestamp),
		})
	}
	return out
}

// observationTime converts an epoch that may be in seconds or milliseconds.
func observationTime(epoch int64) time.Time {
	if epoch <= 0 {
		return time.Now().UTC()
	}
	if epoch > 1e12 {
		return time.UnixMilli(epoch).UTC()
	}
	return time.Unix(epoch, 0).UTC()
}
