package auth

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID string
	Email  string
	// Service is set for trusted machine callers authenticated by service key.
	Service bool
}

type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

var ErrInvalidToken = errors.New("invalid or expired token")

// Gateway resolves a bearer session token to a Principal by trying each
// configured verifier in order.
type Gateway struct {
	verifiers []Verifier
}

func NewGateway(verifiers ...Verifier) *Gateway {
	g := &Gateway{}
	for _, v := range verifiers {
		if v != nil {
			g.verifiers = append(g.verifiers, v)
		}
	}
	return g
}

func (g *Gateway) Verify(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	for _, v := range g.verifiers {
		p, err := v.Verify(ctx, token)
		if err == nil {
			return p, nil
		}
		log.Debug().Err(err).Msg("session verifier rejected token")
	}
	return nil, ErrInvalidToken
}
