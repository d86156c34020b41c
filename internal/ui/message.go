package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/earnx/internal/models"
	"github.com/desertthunder/earnx/internal/services"
	"github.com/desertthunder/earnx/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgLoginResult MsgKind = iota
	MsgEarningsFetched
	MsgEarningAdded
	MsgEarningsDeleted
	MsgProgressUpdate
	MsgImportComplete
	MsgSessionEvent
	MsgToastExpired
)

type loginResult struct {
	session *services.Session
	err     error
}

type earningsFetched struct {
	earnings []models.Earning
	err      error
}

type importComplete struct {
	result *tasks.ImportResult
	err    error
}

// loginResultMsg is the constructor for [MsgLoginResult]
func loginResultMsg(s *services.Session, err error) Msg {
	return Msg{kind: MsgLoginResult, data: loginResult{s, err}}
}

// earningsFetchedMsg is the constructor for [MsgEarningsFetched]
func earningsFetchedMsg(earnings []models.Earning, err error) Msg {
	return Msg{kind: MsgEarningsFetched, data: earningsFetched{earnings, err}}
}

// earningAddedMsg is the constructor for [MsgEarningAdded]; data is the error, nil on success.
func earningAddedMsg(err error) Msg {
	return Msg{kind: MsgEarningAdded, data: err}
}

// earningsDeletedMsg is the constructor for [MsgEarningsDeleted]
func earningsDeletedMsg(count int, err error) Msg {
	return Msg{
		kind: MsgEarningsDeleted,
		data: struct {
			count int
			err   error
		}{count, err},
	}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// importCompleteMsg is the constructor for [MsgImportComplete]
func importCompleteMsg(result *tasks.ImportResult, err error) Msg {
	return Msg{kind: MsgImportComplete, data: importComplete{result, err}}
}

// sessionEventMsg is the constructor for [MsgSessionEvent]
func sessionEventMsg(e services.Event) Msg {
	return Msg{kind: MsgSessionEvent, data: e}
}

// toastExpiredMsg is the constructor for [MsgToastExpired]
func toastExpiredMsg(id int) Msg {
	return Msg{kind: MsgToastExpired, data: id}
}
