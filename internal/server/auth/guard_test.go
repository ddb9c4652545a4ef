package auth

import (
	"errors"
	"testing"

	"github.com/dmitrijs2005/quillpost/internal/common"
)

func TestAuthorizeMutation(t *testing.T) {
	t.Parallel()

	alice := &Claims{UserID: "id-alice", LoginID: "alice"}
	bob := &Claims{UserID: "id-bob", LoginID: "bob"}

	tests := []struct {
		name    string
		claims  *Claims
		owner   string
		wantErr error
	}{
		{name: "owner allowed", claims: alice, owner: "id-alice"},
		{name: "other user forbidden", claims: bob, owner: "id-alice", wantErr: common.ErrorForbidden},
		{name: "nil claims forbidden", claims: nil, owner: "id-alice", wantErr: common.ErrorForbidden},
		{name: "empty ids forbidden", claims: &Claims{}, owner: "", wantErr: common.ErrorForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AuthorizeMutation(tt.claims, tt.owner)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}
