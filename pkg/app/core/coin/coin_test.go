package coin

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualIgnoresOrder(t *testing.T) {
	a := []Coin{New("x", 5), New("a", 10), New("x", 1)}
	b := []Coin{New("x", 1), New("x", 5), New("a", 10)}
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, b[:2]))
	assert.False(t, Equal([]Coin{New("x", 5)}, []Coin{New("x", 6)}))
	assert.True(t, Equal(nil, []Coin{}))
}

func TestSortedDoesNotMutateInput(t *testing.T) {
	in := []Coin{New("b", 1), New("a", 2)}
	out := Sorted(in)
	assert.Equal(t, "b", in[0].Denom)
	assert.Equal(t, "a", out[0].Denom)
}

func TestRender(t *testing.T) {
	assert.Equal(t, "[10a, 50x]", Render([]Coin{New("a", 10), New("x", 50)}))
	assert.Equal(t, "[]", Render(nil))
}

func TestMultiplyAll(t *testing.T) {
	got, err := MultiplyAll([]Coin{New("x", 5), New("y", 3)}, 10)
	require.NoError(t, err)
	assert.True(t, Equal([]Coin{New("x", 50), New("y", 30)}, got))

	max := Coin{Denom: "x", Amount: *new(uint256.Int).SetAllOne()}
	_, err = MultiplyAll([]Coin{max}, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOverflow))
}

func TestJSON(t *testing.T) {
	data, err := json.Marshal([]Coin{New("nhash", 123)})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"denom":"nhash","amount":"123"}]`, string(data))

	var fromNumber Coin
	require.NoError(t, json.Unmarshal([]byte(`{"denom":"x","amount":42}`), &fromNumber))
	assert.Equal(t, New("x", 42), fromNumber)

	var bad Coin
	assert.Error(t, json.Unmarshal([]byte(`{"denom":"x","amount":"-1"}`), &bad))
}
