package user

import (
	"context"
)

type StubUserRepository struct {
	data map[int]User
}

func NewStubUserRepository(users ...User) *StubUserRepository {
	data := map[int]User{}
	for _, u := range users {
		data[u.Id] = u
	}
	return &StubUserRepository{data: data}
}

func (s *StubUserRepository) GetUser(ctx context.Context, id int) (User, error) {
	user, ok := s.data[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (s *StubUserRepository) GetUserByUid(ctx context.Context, uid string) (User, error) {
	for _, user := range s.data {
		if user.Uid == uid {
			return user, nil
		}
	}
	return User{}, ErrUserNotFound
}
