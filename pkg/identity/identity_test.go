package identity

import (
	"context"
	"testing"

	"github.com/jordanlanch/prospectroute/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	_, ok = FromContext(WithIdentity(context.Background(), Identity{}))
	assert.False(t, ok, "zero identity is not authenticated")

	want := Identity{UserID: 7, Email: "rep@test.com", Role: models.RoleUser}
	got, ok := FromContext(WithIdentity(context.Background(), want))
	assert.True(t, ok)
	assert.Equal(t, want, got)
}
