package firebase

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	token *auth.Token
	err   error
}

func (s stubClient) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	return s.token, s.err
}

func TestVerifierReadsProfileClaims(t *testing.T) {
	v := &Verifier{client: stubClient{token: &auth.Token{
		UID: "uid-1",
		Claims: map[string]interface{}{
			"email":   "reader@example.com",
			"name":    "Avid Reader",
			"picture": "https://img.test/a.png",
			"admin":   true,
		},
	}}}

	id, err := v.Verify(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", id.UID)
	assert.Equal(t, "reader@example.com", id.Email)
	assert.Equal(t, "Avid Reader", id.Name)
	assert.Equal(t, "https://img.test/a.png", id.Picture)
}

func TestVerifierPassesErrors(t *testing.T) {
	v := &Verifier{client: stubClient{err: errors.New("expired")}}
	_, err := v.Verify(context.Background(), "token")
	assert.EqualError(t, err, "expired")
}

func TestInitFirebaseNeedsCredentials(t *testing.T) {
	log, _ := test.NewNullLogger()
	_, err := InitFirebase(context.Background(), "", log)
	assert.Error(t, err)
	_, err = InitFirebase(context.Background(), "/does/not/exist.json", log)
	assert.ErrorContains(t, err, "not found")
}
