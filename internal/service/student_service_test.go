package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/kiosk-attendance-api/internal/models"
	"github.com/noah-isme/kiosk-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/kiosk-attendance-api/pkg/errors"
)

func photo(name string) *PhotoUpload {
	return &PhotoUpload{Reader: strings.NewReader("jpeg-bytes"), Filename: name}
}

func TestStudentServiceRegister(t *testing.T) {
	repo := newMockStudentRepo()
	images := &mockImageHost{destroyOK: true}
	svc := NewStudentService(repo, images, validator.New(), zap.NewNop())

	student, err := svc.Register(context.Background(), models.RegisterStudentRequest{
		ID:    " 123 ",
		Name:  "Ana",
		Group: "5A",
		Email: "acudiente@example.com",
	}, photo("123"))
	require.NoError(t, err)
	assert.Equal(t, "123", student.ID)
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/v1/students/123.jpg", student.Photo)
	assert.Equal(t, []string{"jpeg-bytes"}, images.uploads)
	assert.Contains(t, repo.students, "123")
}

func TestStudentServiceRegisterDuplicateSkipsUpload(t *testing.T) {
	repo := newMockStudentRepo(models.Student{ID: "123", Name: "Ana"})
	images := &mockImageHost{}
	svc := NewStudentService(repo, images, nil, nil)

	_, err := svc.Register(context.Background(), models.RegisterStudentRequest{ID: "123", Name: "Otro", Group: "6B", Email: "x@example.com"}, photo("123"))
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)
	assert.Empty(t, images.uploads)
}

func TestStudentServiceRegisterRequiresPhoto(t *testing.T) {
	svc := NewStudentService(newMockStudentRepo(), &mockImageHost{}, nil, nil)

	_, err := svc.Register(context.Background(), models.RegisterStudentRequest{ID: "1", Name: "A", Group: "1A", Email: "a@example.com"}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceRegisterInvalidEmail(t *testing.T) {
	images := &mockImageHost{}
	svc := NewStudentService(newMockStudentRepo(), images, nil, nil)

	_, err := svc.Register(context.Background(), models.RegisterStudentRequest{ID: "1", Name: "A", Group: "1A", Email: "not-an-email"}, photo("1"))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
	assert.Empty(t, images.uploads)
}

func TestStudentServiceRegisterInsertFailureDestroysPhoto(t *testing.T) {
	repo := newMockStudentRepo()
	repo.createErr = errors.New("insert failed")
	images := &mockImageHost{destroyOK: true}
	svc := NewStudentService(repo, images, nil, nil)

	_, err := svc.Register(context.Background(), models.RegisterStudentRequest{ID: "123", Name: "Ana", Group: "5A", Email: "a@example.com"}, photo("123"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrWrite.Code, appErrors.FromError(err).Code)
	assert.Equal(t, []string{"students/123"}, images.destroyed)
}

func TestStudentServiceUpdateReplacesPhoto(t *testing.T) {
	repo := newMockStudentRepo(models.Student{
		ID:    "123",
		Name:  "Ana",
		Group: "5A",
		Photo: "https://res.cloudinary.com/demo/image/upload/v17/students/old.png",
		Email: "old@example.com",
	})
	images := &mockImageHost{destroyOK: true}
	svc := NewStudentService(repo, images, nil, nil)

	updated, err := svc.Update(context.Background(), "123", models.UpdateStudentRequest{Group: "6A", Email: "new@example.com"}, photo("123-new"))
	require.NoError(t, err)
	assert.Equal(t, "Ana", updated.Name)
	assert.Equal(t, "6A", updated.Group)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.Contains(t, updated.Photo, "students/123-new")
	assert.Equal(t, []string{"students/old"}, images.destroyed)
	assert.Equal(t, "6A", repo.students["123"].Group)
}

func TestStudentServiceUpdateWithoutPhotoKeepsExisting(t *testing.T) {
	repo := newMockStudentRepo(models.Student{ID: "123", Name: "Ana", Group: "5A", Photo: "https://example.com/a.jpg"})
	images := &mockImageHost{}
	svc := NewStudentService(repo, images, nil, nil)

	updated, err := svc.Update(context.Background(), "123", models.UpdateStudentRequest{Group: "5B", Email: "a@example.com"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a.jpg", updated.Photo)
	assert.Empty(t, images.destroyed)
}

func TestStudentServiceUpdateMissing(t *testing.T) {
	svc := NewStudentService(newMockStudentRepo(), &mockImageHost{}, nil, nil)

	_, err := svc.Update(context.Background(), "404", models.UpdateStudentRequest{Group: "5B", Email: "a@example.com"}, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}

func TestStudentServiceDelete(t *testing.T) {
	repo := newMockStudentRepo(models.Student{ID: "123", Photo: "https://res.cloudinary.com/demo/image/upload/v1/students/123.jpg"})
	// A rejected photo removal does not block the deletion.
	images := &mockImageHost{destroyOK: false}
	svc := NewStudentService(repo, images, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "123"))
	assert.Equal(t, []string{"123"}, repo.deleted)
	assert.Equal(t, []string{"students/123"}, images.destroyed)
}

func TestStudentServiceDeleteFailureKeepsPhoto(t *testing.T) {
	repo := newMockStudentRepo(models.Student{ID: "123", Photo: "https://res.cloudinary.com/demo/image/upload/v1/students/123.jpg"})
	repo.deleteErr = errors.New("connection reset")
	images := &mockImageHost{destroyOK: true}
	svc := NewStudentService(repo, images, nil, nil)

	err := svc.Delete(context.Background(), "123")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrWrite.Code, appErrors.FromError(err).Code)
	assert.Empty(t, images.destroyed)
}

func TestStudentServiceDeletePhoto(t *testing.T) {
	images := &mockImageHost{destroyOK: true}
	svc := NewStudentService(newMockStudentRepo(), images, nil, nil)

	publicID, err := svc.DeletePhoto(context.Background(), "https://res.cloudinary.com/demo/image/upload/v1700000000/abc123.jpg")
	require.NoError(t, err)
	assert.Equal(t, "abc123", publicID)

	_, err = svc.DeletePhoto(context.Background(), "  ")
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)

	images.destroyOK = false
	_, err = svc.DeletePhoto(context.Background(), "https://res.cloudinary.com/demo/image/upload/v1/abc123.jpg")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, appErrors.FromError(err).Status)
}

func TestStudentServiceListDefaultsPaging(t *testing.T) {
	repo := newMockStudentRepo(models.Student{ID: "2"}, models.Student{ID: "1"})
	svc := NewStudentService(repo, &mockImageHost{}, nil, nil)

	students, page, err := svc.List(context.Background(), repository.StudentFilter{PageSize: 1000})
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "1", students[0].ID)
	assert.Equal(t, 20, page.PageSize)
	assert.Equal(t, 2, page.TotalCount)
}
