package gateway

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

type PointsSettlement struct {
	PointsUsed     int64
	PointsValue    int64
	TransactionRef string
}

type PointsCredit struct {
	PointsCredited int64
	TransactionRef string
}

// PointsLedger is the loyalty ledger contract. Valuation and transfer
// recommendations are the ledger's business; callers only move points.
type PointsLedger interface {
	CheckBalance(ctx context.Context, userID, program string) (int64, error)
	CreatePointsIntent(ctx context.Context, userID, program string, points int64) (string, error)
	ConfirmPointsPayment(ctx context.Context, intentRef string) (PointsSettlement, error)
	RefundPointsPayment(ctx context.Context, intentRef string, amount int64) (PointsCredit, error)
}

type simPointsIntent struct {
	userID  string
	program string
	points  int64
	settled bool
}

type SimPointsLedger struct {
	mu       sync.RWMutex
	balances map[string]int64
	intents  map[string]*simPointsIntent
}

// NewSimPointsLedger returns an in-memory ledger that values every point at
// one minor unit. Balances are keyed by user and program and must be seeded.
func NewSimPointsLedger() *SimPointsLedger {
	return &SimPointsLedger{
		balances: make(map[string]int64),
		intents:  make(map[string]*simPointsIntent),
	}
}

func balanceKey(userID, program string) string {
	return userID + "/" + program
}

// SeedBalance sets a user's balance for a program.
func (l *SimPointsLedger) SeedBalance(userID, program string, points int64) {
	l.mu.Lock()
	l.balances[balanceKey(userID, program)] = points
	l.mu.Unlock()
}

func (l *SimPointsLedger) CheckBalance(ctx context.Context, userID, program string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[balanceKey(userID, program)], nil
}

func (l *SimPointsLedger) CreatePointsIntent(ctx context.Context, userID, program string, points int64) (string, error) {
	ref := "pts_" + uuid.NewString()
	l.mu.Lock()
	l.intents[ref] = &simPointsIntent{userID: userID, program: program, points: points}
	l.mu.Unlock()
	return ref, nil
}

func (l *SimPointsLedger) ConfirmPointsPayment(ctx context.Context, intentRef string) (PointsSettlement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	in, ok := l.intents[intentRef]
	if !ok {
		return PointsSettlement{}, errors.New("no such points intent")
	}
	key := balanceKey(in.userID, in.program)
	if in.settled {
		return PointsSettlement{PointsUsed: in.points, PointsValue: in.points, TransactionRef: "ptx_replayed"}, nil
	}
	if l.balances[key] < in.points {
		return PointsSettlement{}, errors.New("insufficient points")
	}
	l.balances[key] -= in.points
	in.settled = true
	return PointsSettlement{
		PointsUsed:     in.points,
		PointsValue:    in.points,
		TransactionRef: "ptx_" + uuid.NewString(),
	}, nil
}

func (l *SimPointsLedger) RefundPointsPayment(ctx context.Context, intentRef string, amount int64) (PointsCredit, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	in, ok := l.intents[intentRef]
	if !ok {
		return PointsCredit{}, errors.New("no such points intent")
	}
	if !in.settled {
		return PointsCredit{}, errors.New("points intent was never settled")
	}
	l.balances[balanceKey(in.userID, in.program)] += amount
	return PointsCredit{PointsCredited: amount, TransactionRef: "ptx_" + uuid.NewString()}, nil
}
