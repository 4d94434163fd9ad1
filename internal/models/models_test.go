package models

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostString(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "short text unchanged", text: "hello", want: "hello"},
		{name: "exactly fifteen", text: "123456789012345", want: "123456789012345"},
		{name: "long text truncated", text: "Тестовый пост для проверки", want: "Тестовый пост д"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Post{Text: tt.text}.String())
		})
	}
}

func TestUserFullName(t *testing.T) {
	assert.Equal(t, "Leo Tolstoy", User{Username: "leo", FirstName: "Leo", LastName: "Tolstoy"}.FullName())
	assert.Equal(t, "Leo", User{Username: "leo", FirstName: "Leo"}.FullName())
	assert.Equal(t, "leo", User{Username: "leo"}.FullName())
}

func TestValidSlug(t *testing.T) {
	assert.True(t, ValidSlug("cats-and_dogs2"))
	assert.False(t, ValidSlug(""))
	assert.False(t, ValidSlug("has space"))
	assert.False(t, ValidSlug("slash/slug"))
	assert.False(t, ValidSlug("a-very-long-slug-that-goes-well-beyond-forty"))
}

func TestErrorHelpers(t *testing.T) {
	wrapped := fmt.Errorf("loading post: %w", NewNotFoundError("Post", 7))

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsForbidden(wrapped))
	assert.Equal(t, http.StatusNotFound, StatusFor(wrapped))
	assert.Equal(t, http.StatusForbidden, StatusFor(NewForbiddenError("nope")))
	assert.Equal(t, http.StatusBadRequest, StatusFor(NewValidationError("bad")))
	assert.Equal(t, http.StatusUnauthorized, StatusFor(NewUnauthorizedError("login")))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("boom")))
	assert.Equal(t, "", ErrorCode(errors.New("plain")))
}

func TestFieldValidationError(t *testing.T) {
	err := NewFieldValidationError("text", "This field is required.")
	assert.True(t, IsValidation(err))
	assert.Equal(t, map[string]string{"text": "This field is required."}, err.Fields)
}
