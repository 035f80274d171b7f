package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type reviewFixture struct {
	uc       *usecase.ReviewUsecase
	reviews  *ReviewRepoMock
	products *ProductRepoMock
	audit    *AuditRepoMock
}

func newReviewFixture() reviewFixture {
	f := reviewFixture{
		reviews:  new(ReviewRepoMock),
		products: new(ProductRepoMock),
		audit:    new(AuditRepoMock),
	}

	tx := &TxManagerStub{Repos: &TxReposStub{
		ReviewsRepo:  f.reviews,
		ProductsRepo: f.products,
	}}

	f.uc = usecase.NewReviewUsecase(tx, f.audit, nil)
	return f
}

func activeProduct(id int64) model.Product {
	return model.Product{ID: id, Name: "mug", Price: 500, IsActive: true}
}

func reviewRows(ratings ...int) []repo.ReviewWithAuthor {
	rows := make([]repo.ReviewWithAuthor, 0, len(ratings))
	for i, r := range ratings {
		rows = append(rows, repo.ReviewWithAuthor{
			Review:     model.Review{ID: int64(i + 1), ProductID: 100, Rating: r},
			AuthorName: "user",
		})
	}
	return rows
}

func TestReviewUsecase_Create_WritesBackRoundedAverage(t *testing.T) {
	ctx := context.Background()
	f := newReviewFixture()

	f.products.On("FindByID", ctx, int64(100)).Return(activeProduct(100), nil)
	f.reviews.On("FindByUserAndProduct", ctx, int64(1), int64(100)).Return(model.Review{}, repo.ErrNotFound)
	f.reviews.On("Create", ctx, mock.Anything).Return(model.Review{ID: 3, UserID: 1, ProductID: 100, Rating: 5}, nil)

	//投稿後の全件は 4, 5 → 平均4.5
	f.reviews.On("ListByProductID", ctx, int64(100)).Return(reviewRows(4, 5), nil)
	f.products.On("UpdateRatingStats", ctx, int64(100), 4.5, int64(2)).Return(nil)

	out, err := f.uc.Create(ctx, 1, 100, usecase.CreateReviewInput{Rating: 5, Comment: "good"})
	assert.NoError(t, err)
	assert.Equal(t, int64(3), out.ID)

	f.products.AssertExpectations(t)
}

// 5,4,4 → 13/3 = 4.333... → 4.3
func TestReviewUsecase_Create_AverageRoundsToOneDecimal(t *testing.T) {
	ctx := context.Background()
	f := newReviewFixture()

	f.products.On("FindByID", ctx, int64(100)).Return(activeProduct(100), nil)
	f.reviews.On("FindByUserAndProduct", ctx, int64(1), int64(100)).Return(model.Review{}, repo.ErrNotFound)
	f.reviews.On("Create", ctx, mock.Anything).Return(model.Review{ID: 3, Rating: 4}, nil)

	f.reviews.On("ListByProductID", ctx, int64(100)).Return(reviewRows(5, 4, 4), nil)
	f.products.On("UpdateRatingStats", ctx, int64(100), 4.3, int64(3)).Return(nil)

	_, err := f.uc.Create(ctx, 1, 100, usecase.CreateReviewInput{Rating: 4})
	assert.NoError(t, err)

	f.products.AssertExpectations(t)
}

func TestReviewUsecase_Create_SecondReviewConflicts(t *testing.T) {
	ctx := context.Background()
	f := newReviewFixture()

	f.products.On("FindByID", ctx, int64(100)).Return(activeProduct(100), nil)
	f.reviews.On("FindByUserAndProduct", ctx, int64(1), int64(100)).Return(model.Review{ID: 8, UserID: 1, ProductID: 100}, nil)

	_, err := f.uc.Create(ctx, 1, 100, usecase.CreateReviewInput{Rating: 3})
	assertHTTPStatus(t, err, http.StatusConflict)

	f.reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// ユニーク制約での競合もConflictに変換する
func TestReviewUsecase_Create_DuplicateRaceConflicts(t *testing.T) {
	ctx := context.Background()
	f := newReviewFixture()

	f.products.On("FindByID", ctx, int64(100)).Return(activeProduct(100), nil)
	f.reviews.On("FindByUserAndProduct", ctx, int64(1), int64(100)).Return(model.Review{}, repo.ErrNotFound)
	f.reviews.On("Create", ctx, mock.Anything).Return(model.Review{}, repo.ErrDuplicate)

	_, err := f.uc.Create(ctx, 1, 100, usecase.CreateReviewInput{Rating: 3})
	assertHTTPStatus(t, err, http.StatusConflict)
}

func TestReviewUsecase_Create_RatingOutOfRange(t *testing.T) {
	f := newReviewFixture()

	for _, rating := range []int{0, -1, 6} {
		_, err := f.uc.Create(context.Background(), 1, 100, usecase.CreateReviewInput{Rating: rating})
		assertHTTPStatus(t, err, http.StatusBadRequest)
	}
}

func TestReviewUsecase_Update_OnlyAuthorAllowed(t *testing.T) {
	ctx := context.Background()
	f := newReviewFixture()

	f.reviews.On("FindByID", ctx, int64(8)).Return(model.Review{ID: 8, UserID: 2, ProductID: 100, Rating: 4}, nil)

	rating := 1
	_, err := f.uc.Update(ctx, 1, 8, usecase.UpdateReviewInput{Rating: &rating})
	assertHTTPStatus(t, err, http.StatusForbidden)

	f.reviews.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestReviewUsecase_Update_RecomputesAggregate(t *testing.T) {
	ctx := context.Background()
	f := newReviewFixture()

	f.reviews.On("FindByID", ctx, int64(8)).Return(model.Review{ID: 8, UserID: 1, ProductID: 100, Rating: 4, Comment: "ok"}, nil)
	f.reviews.On("Update", ctx, mock.MatchedBy(func(r model.Review) bool {
		return r.ID == 8 && r.Rating == 2 && r.Comment == "ok"
	})).Return(nil)

	f.reviews.On("ListByProductID", ctx, int64(100)).Return(reviewRows(2), nil)
	f.products.On("UpdateRatingStats", ctx, int64(100), 2.0, int64(1)).Return(nil)

	rating := 2
	out, err := f.uc.Update(ctx, 1, 8, usecase.UpdateReviewInput{Rating: &rating})
	assert.NoError(t, err)
	assert.Equal(t, 2, out.Rating)
}

func TestReviewUsecase_Delete_LastReviewZeroesAggregate(t *testing.T) {
	ctx := context.Background()
	f := newReviewFixture()

	f.reviews.On("FindByID", ctx, int64(8)).Return(model.Review{ID: 8, UserID: 1, ProductID: 100, Rating: 4}, nil)
	f.reviews.On("Delete", ctx, int64(8)).Return(nil)

	//残り0件 → 平均0、件数0
	f.reviews.On("ListByProductID", ctx, int64(100)).Return([]repo.ReviewWithAuthor{}, nil)
	f.products.On("UpdateRatingStats", ctx, int64(100), 0.0, int64(0)).Return(nil)

	err := f.uc.Delete(ctx, 1, "USER", 8)
	assert.NoError(t, err)

	f.products.AssertExpectations(t)
}

func TestReviewUsecase_Delete_StrangerForbidden(t *testing.T) {
	ctx := context.Background()
	f := newReviewFixture()

	f.reviews.On("FindByID", ctx, int64(8)).Return(model.Review{ID: 8, UserID: 2, ProductID: 100}, nil)

	err := f.uc.Delete(ctx, 1, "USER", 8)
	assertHTTPStatus(t, err, http.StatusForbidden)
}

// 管理者は他人のレビューを消せる。監査ログが残る。
func TestReviewUsecase_Delete_AdminModerationWritesAudit(t *testing.T) {
	ctx := context.Background()
	f := newReviewFixture()

	f.reviews.On("FindByID", ctx, int64(8)).Return(model.Review{ID: 8, UserID: 2, ProductID: 100, Rating: 1}, nil)
	f.reviews.On("Delete", ctx, int64(8)).Return(nil)
	f.reviews.On("ListByProductID", ctx, int64(100)).Return([]repo.ReviewWithAuthor{}, nil)
	f.products.On("UpdateRatingStats", ctx, int64(100), 0.0, int64(0)).Return(nil)

	f.audit.On("Create", ctx, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionDeleteReview && l.ResourceID == 8 && l.ActorUserID == 9
	})).Return(nil)

	err := f.uc.Delete(ctx, 9, "ADMIN", 8)
	assert.NoError(t, err)

	f.audit.AssertExpectations(t)
}

func TestReviewUsecase_ListProductReviews_HiddenProductIsNotFound(t *testing.T) {
	ctx := context.Background()
	f := newReviewFixture()

	f.products.On("FindByID", ctx, int64(100)).Return(model.Product{ID: 100, IsActive: false}, nil)

	_, err := f.uc.ListProductReviews(ctx, 100)
	assertHTTPStatus(t, err, http.StatusNotFound)
}
