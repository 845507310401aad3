package stockwatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/greenmarket/storefront/internal/kafka"
	"github.com/greenmarket/storefront/internal/orders"
	"github.com/greenmarket/storefront/internal/redisx"
)

// ErrUnknownProduct marks a product that disappeared since the order was
// placed; nothing left to watch.
var ErrUnknownProduct = errors.New("unknown product")

// StockReader loads a product's current name and stock level.
type StockReader interface {
	ProductStock(ctx context.Context, productID int64) (string, int, error)
}

// DedupStore remembers which events have been fully processed. The consumer
// group is at-least-once; redeliveries of a handled event are expected.
type DedupStore interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

type PGStock struct{ DB *pgxpool.Pool }

func (s PGStock) ProductStock(ctx context.Context, productID int64) (string, int, error) {
	var name string
	var stock int
	err := s.DB.QueryRow(ctx,
		`SELECT name, stock FROM products WHERE id=$1`, productID,
	).Scan(&name, &stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", 0, ErrUnknownProduct
	}
	return name, stock, err
}

type RedisDedup struct{ Client *redis.Client }

func (d RedisDedup) Seen(ctx context.Context, key string) (bool, error) {
	return redisx.Exists(ctx, d.Client, key)
}

func (d RedisDedup) Mark(ctx context.Context, key string) error {
	return d.Client.Set(ctx, key, "1", redisx.TTLDedup).Err()
}

// Service watches order.created events and flags products whose remaining
// stock has dropped to the restock threshold. Purely advisory: it logs, it
// never mutates.
type Service struct {
	Stock       StockReader
	Dedup       DedupStore
	Threshold   int
	ServiceName string
}

// HandleOrderCreated is the consumer handler. The event is marked as seen only
// after every item was inspected, so a failed attempt is retried on
// redelivery instead of being swallowed by dedup.
func (s *Service) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderCreated {
		return nil
	}

	key := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	if seen, _ := s.Dedup.Seen(ctx, key); seen {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
	if err != nil {
		return err
	}

	for _, it := range p.Items {
		name, stock, err := s.Stock.ProductStock(ctx, it.ProductID)
		if errors.Is(err, ErrUnknownProduct) {
			continue
		}
		if err != nil {
			return err
		}
		if stock <= s.Threshold {
			log.Printf("low stock: product=%d (%s) remaining=%d threshold=%d order=%d",
				it.ProductID, name, stock, s.Threshold, p.OrderID)
		}
	}

	if err := s.Dedup.Mark(ctx, key); err != nil {
		log.Printf("dedup mark %s: %v", key, err)
	}
	return nil
}
