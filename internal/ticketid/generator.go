// Package ticketid allocates human-readable ticket codes.
//
// Sequential codes are the prefix followed by a zero-padded counter
// (TKT00001). When the counter cannot be reached a placeholder is issued
// instead: the prefix, a literal 'T', the unix millisecond timestamp and a
// random suffix (TKTT1712345678901-3f2a9c). Sequential codes contain only
// digits after the prefix, so the two forms never collide.
package ticketid

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CounterName is the sequence used for ticket codes.
const CounterName = "ticket"

// DefaultPrefix is used when no prefix is configured.
const DefaultPrefix = "TKT"

const (
	counterWidth  = 5
	placeholderID = "T"
)

// CounterStore allocates the next value of a named sequence atomically.
type CounterStore interface {
	Next(ctx context.Context, name string) (int64, error)
}

// Seeder is a CounterStore that can be raised to a floor, so it resumes past
// codes issued before it existed.
type Seeder interface {
	SeedCounter(ctx context.Context, name string, floor int64) error
}

// Generator issues ticket codes.
type Generator struct {
	prefix string
	store  CounterStore
	logger *zap.Logger
	clock  func() time.Time

	sequential  *regexp.Regexp
	placeholder *regexp.Regexp
}

// NewGenerator builds a generator. A nil store always yields placeholders.
func NewGenerator(prefix string, store CounterStore, logger *zap.Logger) *Generator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	quoted := regexp.QuoteMeta(prefix)
	return &Generator{
		prefix:      prefix,
		store:       store,
		logger:      logger,
		clock:       time.Now,
		sequential:  regexp.MustCompile(`^` + quoted + `\d{5,}$`),
		placeholder: regexp.MustCompile(`^` + quoted + placeholderID + `\d+-[0-9a-f]{6}$`),
	}
}

// Next returns a fresh ticket code.
func (g *Generator) Next(ctx context.Context) string {
	if g.store != nil {
		n, err := g.store.Next(ctx, CounterName)
		if err == nil && n > 0 {
			return g.Sequential(n)
		}
		g.logger.Warn("ticket counter unavailable; issuing placeholder id", zap.Error(err), zap.Int64("value", n))
	}
	return g.Placeholder()
}

// Sequential formats counter value n.
func (g *Generator) Sequential(n int64) string {
	return fmt.Sprintf("%s%0*d", g.prefix, counterWidth, n)
}

// Placeholder formats a timestamp-derived code.
func (g *Generator) Placeholder() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return g.prefix + placeholderID + strconv.FormatInt(g.clock().UnixMilli(), 10) + "-" + suffix
}

// Matches reports whether code has either shape this generator issues.
func (g *Generator) Matches(code string) bool {
	return g.IsSequential(code) || g.IsPlaceholder(code)
}

// IsSequential reports whether code came from the counter.
func (g *Generator) IsSequential(code string) bool {
	return g.sequential.MatchString(code)
}

// IsPlaceholder reports whether code is a timestamp placeholder.
func (g *Generator) IsPlaceholder(code string) bool {
	return g.placeholder.MatchString(code)
}
