package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/bilateral/pkg/app/core/coin"
)

func TestSingleHolding(t *testing.T) {
	tests := []struct {
		name    string
		coins   []coin.Coin
		wantErr bool
	}{
		{"single own denom", []coin.Coin{coin.New("d", 10)}, false},
		{"no holdings", nil, true},
		{"two denoms", []coin.Coin{coin.New("d", 10), coin.New("x", 1)}, true},
		{"foreign denom", []coin.Coin{coin.New("x", 10)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			held, err := Entry{Denom: "d", Coins: tt.coins}.SingleHolding()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, coin.New("d", 10), held)
		})
	}
}

func TestHasPermissions(t *testing.T) {
	e := Entry{Permissions: []AccessGrant{
		{Address: "contract", Permissions: []Permission{PermissionAdmin, PermissionWithdraw}},
	}}
	assert.True(t, e.HasPermissions("contract", PermissionAdmin))
	assert.True(t, e.HasPermissions("contract", PermissionAdmin, PermissionWithdraw))
	assert.False(t, e.HasPermissions("contract", PermissionMint))
	assert.False(t, e.HasPermissions("someone", PermissionAdmin))
}

func TestHasIsSubsetCheck(t *testing.T) {
	g := AccessGrant{Address: "owner", Permissions: []Permission{PermissionAdmin, PermissionMint}}
	assert.True(t, g.Has())
	assert.True(t, g.Has(PermissionMint, PermissionAdmin))
	assert.False(t, g.Has(PermissionAdmin, PermissionBurn))
}
