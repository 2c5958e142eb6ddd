package tui

import (
	"github.com/coupn-app/coupn/internal/model"
	"github.com/coupn-app/coupn/internal/search"
)

// Data loading messages.
type promotionsLoadedMsg struct {
	err        error
	promotions []model.Promotion
}

type promotionDeletedMsg struct {
	err error
	key model.PromotionKey
}

// Async operation messages.
type searchResolvedMsg struct {
	err    error
	result model.RelevanceResult
	ticket search.Ticket
}

type voiceStartedMsg struct {
	err error
}

type voiceFinishedMsg struct {
	err error
}

type copiedMsg struct {
	err  error
	what string
}

// clearNoticeMsg expires the notice with the given id.
type clearNoticeMsg struct {
	id int
}

// SortMode orders the visible promotions.
type SortMode int

// Sort modes.
const (
	SortByExpiry SortMode = iota
	SortByCompany
	SortByNewest
)

func (s SortMode) String() string {
	switch s {
	case SortByCompany:
		return "company"
	case SortByNewest:
		return "newest"
	default:
		return "expiry"
	}
}

func (s SortMode) next() SortMode {
	return (s + 1) % 3
}

// noticeLevel selects the status style of a notice.
type noticeLevel int

const (
	noticeInfo noticeLevel = iota
	noticeSuccess
	noticeError
)
