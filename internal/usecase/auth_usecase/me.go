package auth

import (
	"context"
	"errors"

	"app/internal/domain/model"
	"app/internal/repository"
)

// tokenは有効でもユーザーが消えている
var ErrUserNotFound = errors.New("user not found")

// MeUsecaseはログイン中ユーザー自身のプロフィール取得。
type MeUsecase struct {
	userRepo repository.UserRepository
}

func NewMeUsecase(userRepo repository.UserRepository) *MeUsecase {
	return &MeUsecase{userRepo: userRepo}
}

func (u *MeUsecase) Execute(ctx context.Context, userID int64) (model.User, error) {
	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, err
	}

	//hashは返さない
	safeUser := *user
	safeUser.PasswordHash = ""
	return safeUser, nil
}
