package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EmptyUserID is the sentinel user id for a slot nobody occupies.
const EmptyUserID int64 = 0

// BinaryNode is the canonical, normalised view of one placement-tree node.
//
// EMPTY SLOTS:
// The backend marks empty slots two ways: userId == 0 in the network payload
// and isEmpty == true in the summary payload. NormalizeNode folds both into
// UserID == EmptyUserID, so the rest of the code only ever calls Empty().
type BinaryNode struct {
	UserID            int64           `json:"userId"`
	Name              string          `json:"name,omitempty"`
	Position          Position        `json:"position"`
	LeftVolume        decimal.Decimal `json:"leftVolume"`
	RightVolume       decimal.Decimal `json:"rightVolume"`
	TotalLeftVolume   decimal.Decimal `json:"totalLeftVolume"`
	TotalRightVolume  decimal.Decimal `json:"totalRightVolume"`
	LeftCarryForward  decimal.Decimal `json:"leftCarryForward"`
	RightCarryForward decimal.Decimal `json:"rightCarryForward"`
	LeftCount         int             `json:"leftCount"`
	RightCount        int             `json:"rightCount"`
	LeftChildID       int64           `json:"leftChildId"`
	RightChildID      int64           `json:"rightChildId"`
}

// Empty reports whether the node is the empty-slot sentinel.
func (n BinaryNode) Empty() bool {
	return n.UserID == EmptyUserID
}

// BinaryNetwork is the accounting record of a node as the backend stores it.
type BinaryNetwork struct {
	UserID            int64           `json:"userId"`
	Position          Position        `json:"position"`
	ParentID          int64           `json:"parentId"`
	LeftChildID       int64           `json:"leftChildId"`
	RightChildID      int64           `json:"rightChildId"`
	LeftVolume        decimal.Decimal `json:"leftVolume"`
	RightVolume       decimal.Decimal `json:"rightVolume"`
	LeftCarryForward  decimal.Decimal `json:"leftCarryForward"`
	RightCarryForward decimal.Decimal `json:"rightCarryForward"`
	TotalLeftVolume   decimal.Decimal `json:"totalLeftVolume"`
	TotalRightVolume  decimal.Decimal `json:"totalRightVolume"`
	LeftCount         int             `json:"leftCount"`
	RightCount        int             `json:"rightCount"`
	LastBinaryProcess *time.Time      `json:"lastBinaryProcess,omitempty"`
}

// BinaryChild is the short child reference embedded in a BinarySummary.
type BinaryChild struct {
	UserID  int64  `json:"userId"`
	Name    string `json:"name"`
	IsEmpty bool   `json:"isEmpty"`
}

// BinarySummary is the display-oriented node shape ("binaryTree" in payloads).
type BinarySummary struct {
	UserID           int64           `json:"userId"`
	Name             string          `json:"name"`
	Position         Position        `json:"position"`
	LeftVolume       decimal.Decimal `json:"leftVolume"`
	RightVolume      decimal.Decimal `json:"rightVolume"`
	TotalLeftVolume  decimal.Decimal `json:"totalLeftVolume"`
	TotalRightVolume decimal.Decimal `json:"totalRightVolume"`
	IsEmpty          bool            `json:"isEmpty"`
	Left             *BinaryChild    `json:"left,omitempty"`
	Right            *BinaryChild    `json:"right,omitempty"`
}

// BinaryTreePayload is the data block of GET /binary/tree.
type BinaryTreePayload struct {
	BinaryTree    *BinarySummary `json:"binaryTree,omitempty"`
	BinaryNetwork *BinaryNetwork `json:"binaryNetwork,omitempty"`
	UserVolume    *Volume        `json:"userVolume,omitempty"`
}

// UserBinaryTree is the data block of GET /users/binary-tree.
type UserBinaryTree struct {
	BinaryTree BinarySummary `json:"binaryTree"`
}

// NormalizeNode folds the two payload conventions into one BinaryNode.
//
// The network record wins for accounting figures and child ids because it is
// the authoritative ledger; the summary fills the display name and, when no
// network record was sent, everything it carries. Either convention marking
// the node empty yields the sentinel.
func NormalizeNode(p BinaryTreePayload) BinaryNode {
	var n BinaryNode

	if s := p.BinaryTree; s != nil {
		if s.IsEmpty {
			return BinaryNode{UserID: EmptyUserID}
		}
		n.UserID = s.UserID
		n.Name = s.Name
		n.Position = s.Position
		n.LeftVolume = s.LeftVolume
		n.RightVolume = s.RightVolume
		n.TotalLeftVolume = s.TotalLeftVolume
		n.TotalRightVolume = s.TotalRightVolume
		n.LeftChildID = childID(s.Left)
		n.RightChildID = childID(s.Right)
	}

	if w := p.BinaryNetwork; w != nil {
		if w.UserID == EmptyUserID {
			return BinaryNode{UserID: EmptyUserID}
		}
		n.UserID = w.UserID
		n.Position = w.Position
		n.LeftVolume = w.LeftVolume
		n.RightVolume = w.RightVolume
		n.TotalLeftVolume = w.TotalLeftVolume
		n.TotalRightVolume = w.TotalRightVolume
		n.LeftCarryForward = w.LeftCarryForward
		n.RightCarryForward = w.RightCarryForward
		n.LeftCount = w.LeftCount
		n.RightCount = w.RightCount
		n.LeftChildID = w.LeftChildID
		n.RightChildID = w.RightChildID
	}

	return n
}

func childID(c *BinaryChild) int64 {
	if c == nil || c.IsEmpty {
		return EmptyUserID
	}
	return c.UserID
}

// BinaryLegs is the data block of GET /binary/legs.
type BinaryLegs struct {
	UserID            int64      `json:"userId"`
	LeftLeg           *int64     `json:"leftLeg"`
	RightLeg          *int64     `json:"rightLeg"`
	WeakerLeg         Position   `json:"weakerLeg"`
	StrongerLeg       Position   `json:"strongerLeg"`
	LastBinaryProcess *time.Time `json:"lastBinaryProcess,omitempty"`
}

// PendingBinaryIncome is the data block of GET /binary/pending-income.
type PendingBinaryIncome struct {
	MatchingVolume    decimal.Decimal     `json:"matchingVolume"`
	PotentialIncome   decimal.Decimal     `json:"potentialIncome"`
	MaxEarnable       decimal.NullDecimal `json:"maxEarnable"`
	LeftVolume        decimal.Decimal     `json:"leftVolume"`
	RightVolume       decimal.Decimal     `json:"rightVolume"`
	LeftCarryForward  decimal.Decimal     `json:"leftCarryForward"`
	RightCarryForward decimal.Decimal     `json:"rightCarryForward"`
}

// BinaryAnalysis is the data block of GET /binary/analysis.
type BinaryAnalysis struct {
	LeftVolume     decimal.Decimal `json:"leftVolume"`
	RightVolume    decimal.Decimal `json:"rightVolume"`
	TotalVolume    decimal.Decimal `json:"totalVolume"`
	BalanceRatio   decimal.Decimal `json:"balanceRatio"`
	IsBalanced     bool            `json:"isBalanced"`
	RecentActivity struct {
		LeftLegTransactions  int `json:"leftLegTransactions"`
		RightLegTransactions int `json:"rightLegTransactions"`
	} `json:"recentActivity"`
	GrowthTrend struct {
		LeftGrowth  decimal.Decimal `json:"leftGrowth"`
		RightGrowth decimal.Decimal `json:"rightGrowth"`
	} `json:"growthTrend"`
	SuggestedFocus string `json:"suggestedFocus"`
}

// AutopoolPosition is the data block of GET /autopool/position.
type AutopoolPosition struct {
	UserID   int64           `json:"userId"`
	Level    int             `json:"level"`
	Position int             `json:"position"`
	ParentID int64           `json:"parentId"`
	Earned   decimal.Decimal `json:"earned"`
	Meta     map[string]any  `json:"meta,omitempty"`
}

// AutopoolTeam is the data block of GET /autopool/team.
type AutopoolTeam struct {
	Levels map[string][]int64 `json:"levels"`
	Total  int                `json:"total"`
}
