package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeNode(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantEmpty bool
		wantID    int64
		wantLeft  int64
		wantRight int64
		wantName  string
	}{
		{
			name:      "isEmpty flag is the sentinel",
			payload:   `{"binaryTree":{"userId":55,"isEmpty":true}}`,
			wantEmpty: true,
		},
		{
			name:      "userId zero in network record is the sentinel",
			payload:   `{"binaryNetwork":{"userId":0,"leftChildId":9}}`,
			wantEmpty: true,
		},
		{
			name:      "nothing sent is the sentinel",
			payload:   `{}`,
			wantEmpty: true,
		},
		{
			name:      "network child ids",
			payload:   `{"binaryNetwork":{"userId":42,"leftChildId":0,"rightChildId":107}}`,
			wantID:    42,
			wantRight: 107,
		},
		{
			name:      "summary children, empty child folded to zero",
			payload:   `{"binaryTree":{"userId":42,"name":"Ada","left":{"userId":3,"isEmpty":true},"right":{"userId":107,"name":"Bob"}}}`,
			wantID:    42,
			wantRight: 107,
			wantName:  "Ada",
		},
		{
			name:      "network wins over summary, summary keeps name",
			payload:   `{"binaryTree":{"userId":42,"name":"Ada","right":{"userId":5}},"binaryNetwork":{"userId":42,"leftChildId":8,"rightChildId":107}}`,
			wantID:    42,
			wantLeft:  8,
			wantRight: 107,
			wantName:  "Ada",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p BinaryTreePayload
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &p))

			n := NormalizeNode(p)
			assert.Equal(t, tt.wantEmpty, n.Empty())
			if tt.wantEmpty {
				return
			}
			assert.Equal(t, tt.wantID, n.UserID)
			assert.Equal(t, tt.wantLeft, n.LeftChildID)
			assert.Equal(t, tt.wantRight, n.RightChildID)
			assert.Equal(t, tt.wantName, n.Name)
		})
	}
}

func TestNormalizeNode_Volumes(t *testing.T) {
	var p BinaryTreePayload
	raw := `{"binaryNetwork":{"userId":7,"leftVolume":"100.50","rightVolume":20,"leftCarryForward":80.5,"leftCount":3,"rightCount":1}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	n := NormalizeNode(p)
	assert.True(t, n.LeftVolume.Equal(decimal.RequireFromString("100.5")))
	assert.True(t, n.RightVolume.Equal(decimal.NewFromInt(20)))
	assert.True(t, n.LeftCarryForward.Equal(decimal.RequireFromString("80.5")))
	assert.Equal(t, 3, n.LeftCount)
	assert.Equal(t, 1, n.RightCount)
}

func TestPaginationHasNext(t *testing.T) {
	assert.True(t, Pagination{Page: 1, TotalPages: 3}.HasNext())
	assert.False(t, Pagination{Page: 3, TotalPages: 3}.HasNext())
	assert.False(t, Pagination{}.HasNext())
}

func TestPositionString(t *testing.T) {
	assert.Equal(t, "left", PositionLeft.String())
	assert.Equal(t, "right", PositionRight.String())
}
