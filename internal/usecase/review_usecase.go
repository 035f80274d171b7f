package usecase

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"os"
	"time"

	"app/internal/domain/model"
	"app/internal/metrics"
	repo "app/internal/repository"

	"github.com/rs/zerolog"
)

var reviewLogger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "review").Logger()

type ReviewUsecase struct {
	tx        repo.TransactionManager
	auditLogs repo.AuditLogRepository
	metrics   *metrics.AppMetrics
}

func NewReviewUsecase(tx repo.TransactionManager, auditLogs repo.AuditLogRepository, m *metrics.AppMetrics) *ReviewUsecase {
	return &ReviewUsecase{tx: tx, auditLogs: auditLogs, metrics: m}
}

type ReviewOutput struct {
	ID         int64     `json:"id"`
	ProductID  int64     `json:"product_id"`
	UserID     int64     `json:"user_id"`
	AuthorName string    `json:"author_name,omitempty"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type CreateReviewInput struct {
	Rating  int
	Comment string
}

type UpdateReviewInput struct {
	Rating  *int
	Comment *string
}

func (u *ReviewUsecase) ListProductReviews(ctx context.Context, productID int64) ([]ReviewOutput, error) {
	if productID <= 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var outs []ReviewOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := mustVisibleProduct(ctx, r, productID); err != nil {
			return err
		}

		rows, err := r.Reviews().ListByProductID(ctx, productID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs = make([]ReviewOutput, 0, len(rows))
		for _, row := range rows {
			o := toReviewOutput(row.Review)
			o.AuthorName = row.AuthorName
			outs = append(outs, o)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return outs, nil
}

func (u *ReviewUsecase) GetMyReviewForProduct(ctx context.Context, userID int64, productID int64) (ReviewOutput, error) {
	if userID <= 0 {
		return ReviewOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return ReviewOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out ReviewOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		rev, err := r.Reviews().FindByUserAndProduct(ctx, userID, productID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = toReviewOutput(rev)
		return nil
	})

	if err != nil {
		return ReviewOutput{}, err
	}
	return out, nil
}

// Create はレビューを投稿する。(user, product) につき1件まで。
// 投稿後、対象商品の平均評価とレビュー数を再計算して書き戻す。
func (u *ReviewUsecase) Create(ctx context.Context, userID int64, productID int64, in CreateReviewInput) (ReviewOutput, error) {
	if userID <= 0 {
		return ReviewOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return ReviewOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return ReviewOutput{}, NewHTTPError(http.StatusBadRequest, "rating must be between 1 and 5")
	}

	var out ReviewOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := mustVisibleProduct(ctx, r, productID); err != nil {
			return err
		}

		//重複チェック。競合時はユニーク制約でErrDuplicateになる
		_, err := r.Reviews().FindByUserAndProduct(ctx, userID, productID)
		if err == nil {
			return NewHTTPError(http.StatusConflict, "already reviewed")
		}
		if err != repo.ErrNotFound {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		created, err := r.Reviews().Create(ctx, model.Review{
			UserID:    userID,
			ProductID: productID,
			Rating:    in.Rating,
			Comment:   in.Comment,
		})
		if err == repo.ErrDuplicate {
			return NewHTTPError(http.StatusConflict, "already reviewed")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := recomputeProductRating(ctx, r, productID); err != nil {
			return err
		}

		out = toReviewOutput(created)
		return nil
	})

	if err != nil {
		return ReviewOutput{}, err
	}

	u.metrics.RecordReviewWritten(ctx, "create")
	return out, nil
}

func (u *ReviewUsecase) Update(ctx context.Context, userID int64, reviewID int64, in UpdateReviewInput) (ReviewOutput, error) {
	if userID <= 0 {
		return ReviewOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if reviewID <= 0 {
		return ReviewOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if in.Rating != nil && (*in.Rating < 1 || *in.Rating > 5) {
		return ReviewOutput{}, NewHTTPError(http.StatusBadRequest, "rating must be between 1 and 5")
	}

	var out ReviewOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		rev, err := r.Reviews().FindByID(ctx, reviewID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		//本人以外は更新不可
		if rev.UserID != userID {
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}

		if in.Rating != nil {
			rev.Rating = *in.Rating
		}
		if in.Comment != nil {
			rev.Comment = *in.Comment
		}

		if err := r.Reviews().Update(ctx, rev); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := recomputeProductRating(ctx, r, rev.ProductID); err != nil {
			return err
		}

		out = toReviewOutput(rev)
		return nil
	})

	if err != nil {
		return ReviewOutput{}, err
	}

	u.metrics.RecordReviewWritten(ctx, "update")
	return out, nil
}

// Delete は本人または管理者が呼べる。管理者による削除は監査ログを残す。
func (u *ReviewUsecase) Delete(ctx context.Context, userID int64, userRole string, reviewID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if reviewID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var deleted model.Review

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		rev, err := r.Reviews().FindByID(ctx, reviewID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if rev.UserID != userID && userRole != string(model.RoleAdmin) {
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}

		if err := r.Reviews().Delete(ctx, reviewID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := recomputeProductRating(ctx, r, rev.ProductID); err != nil {
			return err
		}

		deleted = rev
		return nil
	})

	if err != nil {
		return err
	}

	//モデレーション削除の場合だけ記録する
	if deleted.UserID != userID && u.auditLogs != nil {
		before, _ := json.Marshal(deleted)
		auditErr := u.auditLogs.Create(ctx, model.AuditLog{
			ActorUserID:  userID,
			Action:       model.AuditActionDeleteReview,
			ResourceType: model.AuditResourceReview,
			ResourceID:   reviewID,
			BeforeJSON:   string(before),
			AfterJSON:    "null",
			CreatedAt:    time.Now(),
		})
		if auditErr != nil {
			reviewLogger.Error().Err(auditErr).Int64("review_id", reviewID).Msg("audit log write failed")
		}
	}

	u.metrics.RecordReviewWritten(ctx, "delete")
	return nil
}

// 平均は全件を読み直して計算し、小数1桁に丸める。レビュー0件なら0。
func recomputeProductRating(ctx context.Context, r repo.TxRepos, productID int64) error {
	rows, err := r.Reviews().ListByProductID(ctx, productID)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	var avg float64
	if len(rows) > 0 {
		var sum int64
		for _, row := range rows {
			sum += int64(row.Rating)
		}
		avg = math.Round(float64(sum)/float64(len(rows))*10) / 10
	}

	if err := r.Products().UpdateRatingStats(ctx, productID, avg, int64(len(rows))); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// 非公開・削除済み商品は存在しない扱い。
func mustVisibleProduct(ctx context.Context, r repo.TxRepos, productID int64) error {
	p, err := r.Products().FindByID(ctx, productID)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !p.IsActive {
		return NewHTTPError(http.StatusNotFound, "product not found")
	}
	return nil
}

func toReviewOutput(r model.Review) ReviewOutput {
	return ReviewOutput{
		ID:        r.ID,
		ProductID: r.ProductID,
		UserID:    r.UserID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
