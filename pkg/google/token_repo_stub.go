package google

import (
	"context"
	"sync"
)

type TokenRepositoryStub struct {
	mu       sync.Mutex
	tokens   map[int]StoredToken
	requests map[string]int
}

func NewTokenRepositoryStub() *TokenRepositoryStub {
	return &TokenRepositoryStub{
		tokens:   map[int]StoredToken{},
		requests: map[string]int{},
	}
}

func (r *TokenRepositoryStub) GetToken(ctx context.Context, userId int) (*StoredToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[userId]
	if !ok {
		return nil, nil
	}
	return &token, nil
}

func (r *TokenRepositoryStub) UpsertToken(ctx context.Context, token StoredToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token.UserId] = token
	return nil
}

func (r *TokenRepositoryStub) DeleteToken(ctx context.Context, userId int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, userId)
	return nil
}

func (r *TokenRepositoryStub) CreateAuthRequest(ctx context.Context, nonce string, userId int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for n, id := range r.requests {
		if id == userId {
			delete(r.requests, n)
		}
	}
	r.requests[nonce] = userId
	return nil
}

func (r *TokenRepositoryStub) ConsumeAuthRequest(ctx context.Context, nonce string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	userId, ok := r.requests[nonce]
	if !ok {
		return 0, ErrUnknownAuthRequest
	}
	delete(r.requests, nonce)
	return userId, nil
}

func (r *TokenRepositoryStub) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = map[int]StoredToken{}
	r.requests = map[string]int{}
}
