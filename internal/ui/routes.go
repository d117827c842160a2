// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"github.com/jeranaias/medibot-tui/internal/api"
	"github.com/jeranaias/medibot-tui/internal/session"
)

// Route names a view.
type Route int

const (
	RouteHome Route = iota
	RouteSignIn
	RouteSignUp
	RouteChat
)

// String returns the route name.
func (r Route) String() string {
	switch r {
	case RouteHome:
		return "home"
	case RouteSignIn:
		return "signin"
	case RouteSignUp:
		return "signup"
	case RouteChat:
		return "chat"
	default:
		return "unknown"
	}
}

// ParseRoute maps a name to a route. Unknown names yield RouteHome.
func ParseRoute(name string) Route {
	switch name {
	case "signin", "login":
		return RouteSignIn
	case "signup":
		return RouteSignUp
	case "chat":
		return RouteChat
	default:
		return RouteHome
	}
}

// =============================================================================
// MESSAGES
// =============================================================================

// NavigateMsg asks the app to show a route through the guard.
type NavigateMsg struct {
	Route Route
}

// authDoneMsg carries the outcome of a form submission.
type authDoneMsg struct {
	Kind Route
	User *api.User
	Err  error
}

// signedOutMsg follows a completed sign-out.
type signedOutMsg struct {
	Err error
}

// sessionChangedMsg carries an on-disk session change made by another
// process, such as "medibot logout".
type sessionChangedMsg struct {
	Changed session.Changed
	ok      bool
}
