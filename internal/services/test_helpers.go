package services

import (
	"context"
	"time"

	"github.com/linksylabs/linksy-backend/internal/models"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc                 func(ctx context.Context, id int64) (*models.User, error)
	GetByUsernameFunc           func(ctx context.Context, username string) (*models.User, error)
	GetByEmailFunc              func(ctx context.Context, email string) (*models.User, error)
	GetByFederatedIDFunc        func(ctx context.Context, federatedID string) (*models.User, error)
	CreateFunc                  func(ctx context.Context, user *models.User) (*models.User, error)
	UpsertByFederatedIDFunc     func(ctx context.Context, username, email, federatedID string, syncedAt time.Time) (*models.User, error)
	ApplyClaimSyncFunc          func(ctx context.Context, userID int64, username, email, federatedID string, syncedAt time.Time) (*models.User, error)
	UpdateProfileFunc           func(ctx context.Context, userID int64, username, email string) (*models.User, error)
	UpdatePasswordHashFunc      func(ctx context.Context, userID int64, passwordHash string) error
	UpdateProfilePictureRefFunc func(ctx context.Context, userID int64, ref *string) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByFederatedID(ctx context.Context, federatedID string) (*models.User, error) {
	if m.GetByFederatedIDFunc != nil {
		return m.GetByFederatedIDFunc(ctx, federatedID)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpsertByFederatedID(ctx context.Context, username, email, federatedID string, syncedAt time.Time) (*models.User, error) {
	if m.UpsertByFederatedIDFunc != nil {
		return m.UpsertByFederatedIDFunc(ctx, username, email, federatedID, syncedAt)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) ApplyClaimSync(ctx context.Context, userID int64, username, email, federatedID string, syncedAt time.Time) (*models.User, error) {
	if m.ApplyClaimSyncFunc != nil {
		return m.ApplyClaimSyncFunc(ctx, userID, username, email, federatedID, syncedAt)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, userID int64, username, email string) (*models.User, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, userID, username, email)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdatePasswordHash(ctx context.Context, userID int64, passwordHash string) error {
	if m.UpdatePasswordHashFunc != nil {
		return m.UpdatePasswordHashFunc(ctx, userID, passwordHash)
	}
	return nil
}

func (m *MockUserRepository) UpdateProfilePictureRef(ctx context.Context, userID int64, ref *string) error {
	if m.UpdateProfilePictureRefFunc != nil {
		return m.UpdateProfilePictureRefFunc(ctx, userID, ref)
	}
	return nil
}

// MockIdPClient implements IdPClient for testing
type MockIdPClient struct {
	ExchangePasswordFunc func(ctx context.Context, username, password string) (*models.TokenSet, error)
	IntrospectFunc       func(ctx context.Context, token string) (*models.IdPTokenClaims, error)
	ProvisionUserFunc    func(ctx context.Context, username string, profile models.RegistrationProfile) (string, error)
}

func (m *MockIdPClient) ExchangePassword(ctx context.Context, username, password string) (*models.TokenSet, error) {
	if m.ExchangePasswordFunc != nil {
		return m.ExchangePasswordFunc(ctx, username, password)
	}
	return nil, models.ErrInternalServer
}

func (m *MockIdPClient) Introspect(ctx context.Context, token string) (*models.IdPTokenClaims, error) {
	if m.IntrospectFunc != nil {
		return m.IntrospectFunc(ctx, token)
	}
	return nil, models.ErrInternalServer
}

func (m *MockIdPClient) ProvisionUser(ctx context.Context, username string, profile models.RegistrationProfile) (string, error) {
	if m.ProvisionUserFunc != nil {
		return m.ProvisionUserFunc(ctx, username, profile)
	}
	return "", models.ErrInternalServer
}

// MockObjectStorage implements ObjectStorage for testing
type MockObjectStorage struct {
	UploadFunc     func(ctx context.Context, key, contentType string, data []byte) error
	DeleteFunc     func(ctx context.Context, key string) error
	PresignGetFunc func(ctx context.Context, key string) (string, error)
}

func (m *MockObjectStorage) Upload(ctx context.Context, key, contentType string, data []byte) error {
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, key, contentType, data)
	}
	return nil
}

func (m *MockObjectStorage) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	return nil
}

func (m *MockObjectStorage) PresignGet(ctx context.Context, key string) (string, error) {
	if m.PresignGetFunc != nil {
		return m.PresignGetFunc(ctx, key)
	}
	return "https://storage.example.com/" + key, nil
}

// MockPostRepository implements PostRepository for testing
type MockPostRepository struct {
	CreateFunc      func(ctx context.Context, post *models.Post) (*models.Post, error)
	GetByIDFunc     func(ctx context.Context, id int64) (*models.Post, error)
	ListAllFunc     func(ctx context.Context) ([]*models.Post, error)
	ListByUserFunc  func(ctx context.Context, userID int64) ([]*models.Post, error)
	UpdateFunc      func(ctx context.Context, id int64, title, content string) (*models.Post, error)
	SetImageRefFunc func(ctx context.Context, id int64, imageRef *string) error
	DeleteFunc      func(ctx context.Context, id int64) error
}

func (m *MockPostRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, post)
	}
	return nil, models.ErrInternalServer
}

func (m *MockPostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockPostRepository) ListAll(ctx context.Context) ([]*models.Post, error) {
	if m.ListAllFunc != nil {
		return m.ListAllFunc(ctx)
	}
	return []*models.Post{}, nil
}

func (m *MockPostRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Post, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	return []*models.Post{}, nil
}

func (m *MockPostRepository) Update(ctx context.Context, id int64, title, content string) (*models.Post, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, title, content)
	}
	return nil, models.ErrInternalServer
}

func (m *MockPostRepository) SetImageRef(ctx context.Context, id int64, imageRef *string) error {
	if m.SetImageRefFunc != nil {
		return m.SetImageRefFunc(ctx, id, imageRef)
	}
	return nil
}

func (m *MockPostRepository) Delete(ctx context.Context, id int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockCommentRepository implements CommentRepository for testing
type MockCommentRepository struct {
	CreateFunc       func(ctx context.Context, comment *models.Comment) (*models.Comment, error)
	GetByIDFunc      func(ctx context.Context, id int64) (*models.Comment, error)
	ListByPostFunc   func(ctx context.Context, postID int64) ([]*models.Comment, error)
	UpdateFunc       func(ctx context.Context, id int64, content string) (*models.Comment, error)
	DeleteFunc       func(ctx context.Context, id int64) error
	CountByPostFunc  func(ctx context.Context, postID int64) (int64, error)
	CountByPostsFunc func(ctx context.Context, postIDs []int64) (map[int64]int64, error)
}

func (m *MockCommentRepository) Create(ctx context.Context, comment *models.Comment) (*models.Comment, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, comment)
	}
	return nil, models.ErrInternalServer
}

func (m *MockCommentRepository) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockCommentRepository) ListByPost(ctx context.Context, postID int64) ([]*models.Comment, error) {
	if m.ListByPostFunc != nil {
		return m.ListByPostFunc(ctx, postID)
	}
	return []*models.Comment{}, nil
}

func (m *MockCommentRepository) Update(ctx context.Context, id int64, content string) (*models.Comment, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, content)
	}
	return nil, models.ErrInternalServer
}

func (m *MockCommentRepository) Delete(ctx context.Context, id int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockCommentRepository) CountByPost(ctx context.Context, postID int64) (int64, error) {
	if m.CountByPostFunc != nil {
		return m.CountByPostFunc(ctx, postID)
	}
	return 0, nil
}

func (m *MockCommentRepository) CountByPosts(ctx context.Context, postIDs []int64) (map[int64]int64, error) {
	if m.CountByPostsFunc != nil {
		return m.CountByPostsFunc(ctx, postIDs)
	}
	return map[int64]int64{}, nil
}

// MockLikeRepository implements LikeRepository for testing
type MockLikeRepository struct {
	ToggleFunc       func(ctx context.Context, userID, postID int64) (bool, int64, error)
	IsLikedFunc      func(ctx context.Context, userID, postID int64) (bool, error)
	CountByPostsFunc func(ctx context.Context, postIDs []int64) (map[int64]int64, error)
	LikedPostIDsFunc func(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error)
}

func (m *MockLikeRepository) Toggle(ctx context.Context, userID, postID int64) (bool, int64, error) {
	if m.ToggleFunc != nil {
		return m.ToggleFunc(ctx, userID, postID)
	}
	return false, 0, models.ErrInternalServer
}

func (m *MockLikeRepository) IsLiked(ctx context.Context, userID, postID int64) (bool, error) {
	if m.IsLikedFunc != nil {
		return m.IsLikedFunc(ctx, userID, postID)
	}
	return false, nil
}

func (m *MockLikeRepository) CountByPosts(ctx context.Context, postIDs []int64) (map[int64]int64, error) {
	if m.CountByPostsFunc != nil {
		return m.CountByPostsFunc(ctx, postIDs)
	}
	return map[int64]int64{}, nil
}

func (m *MockLikeRepository) LikedPostIDs(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
	if m.LikedPostIDsFunc != nil {
		return m.LikedPostIDsFunc(ctx, userID, postIDs)
	}
	return map[int64]bool{}, nil
}
