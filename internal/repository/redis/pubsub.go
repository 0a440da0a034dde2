package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tiketbaris/gate-go/internal/domain"
)

// AdmissionsPubSub broadcasts gate activity so dashboards can tick live
// counters without polling.
type AdmissionsPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewAdmissionsPubSub(rdb *redis.Client) *AdmissionsPubSub {
	return &AdmissionsPubSub{
		rdb:     rdb,
		channel: ChannelAdmissions(),
	}
}

type admissionMsg struct {
	Type      string             `json:"type"`
	EventID   int64              `json:"event_id"`
	Code      string             `json:"code"`
	Outcome   domain.OutcomeKind `json:"outcome"`
	ScannerID int64              `json:"scanner_id"`
	TsUnix    int64              `json:"ts_unix"`
}

func (p *AdmissionsPubSub) PublishScan(
	ctx context.Context,
	eventID int64,
	code string,
	scannerID int64,
	outcome domain.OutcomeKind,
) error {
	msg := admissionMsg{
		Type:      "scan",
		EventID:   eventID,
		Code:      code,
		Outcome:   outcome,
		ScannerID: scannerID,
		TsUnix:    time.Now().Unix(),
	}

	b, _ := json.Marshal(msg)

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

func (p *AdmissionsPubSub) Subscribe(
	ctx context.Context,
	handler func(ctx context.Context, eventID int64, outcome domain.OutcomeKind),
) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev admissionMsg
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil &&
				ev.EventID != 0 {
				handler(ctx, ev.EventID, ev.Outcome)
			}
		}
	}
}
