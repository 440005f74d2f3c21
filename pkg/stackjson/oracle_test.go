package stackjson

import (
	"testing"

	"github.com/bytedance/sonic"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type order struct {
	ID       int64        `json:"id"`
	Customer string       `json:"customer"`
	Paid     bool         `json:"paid"`
	Total    float64      `json:"total"`
	Lines    []orderLine  `json:"lines"`
	Notes    []string     `json:"notes"`
	Shipping *orderAddr   `json:"shipping"`
	Matrix   [][]int32    `json:"matrix"`
	Flags    [2]bool      `json:"flags"`
	Parent   *order       `json:"parent"`
	Counts   []uint16     `json:"counts"`
	Extra    []*orderLine `json:"extra"`
}

type orderLine struct {
	SKU   string  `json:"sku"`
	Qty   uint32  `json:"qty"`
	Price float32 `json:"price"`
}

type orderAddr struct {
	Street string `json:"street"`
	City   string `json:"city"`
}

func sampleOrders() []*order {
	return []*order{
		{},
		{ID: 1, Customer: "zoë", Total: 12.5, Notes: []string{}, Matrix: [][]int32{{}, {1, -2}}},
		{
			ID:       -99,
			Customer: "tab\there \"quoted\" \\ back",
			Paid:     true,
			Total:    1234.5,
			Lines:    []orderLine{{SKU: "a", Qty: 2, Price: 0.25}, {SKU: "日本", Qty: 0, Price: -3}},
			Shipping: &orderAddr{Street: "1 Main St", City: "Springfield"},
			Flags:    [2]bool{true, false},
			Parent:   &order{ID: 7, Lines: []orderLine{}},
			Counts:   []uint16{0, 65535},
			Extra:    []*orderLine{nil, {SKU: "x"}},
		},
	}
}

func TestOracle_Marshal(t *testing.T) {
	s := MustNew()
	for _, v := range sampleOrders() {
		got, err := s.Marshal(v)
		require.NoError(t, err)

		want, err := sonic.ConfigStd.Marshal(v)
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got))

		want, err = jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(v)
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got))
	}
}

func TestOracle_Unmarshal(t *testing.T) {
	s := MustNew()
	for _, v := range sampleOrders() {
		data, err := sonic.ConfigStd.Marshal(v)
		require.NoError(t, err)

		got, err := Unmarshal[*order](s, data)
		require.NoError(t, err)
		assert.Equal(t, v, got)

		var viaIter order
		require.NoError(t, jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &viaIter))
		assert.Equal(t, *v, viaIter)
	}
}
