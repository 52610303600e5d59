package service

import "errors"

var (
	// ErrResourceExhausted 表示请求类型/区域下没有任何房间有空余名额。
	// 对调用方可重试（稍后再试或换一种类型）。
	ErrResourceExhausted = errors.New("no room with free capacity available")
	// ErrConflict 表示名额在预留和确认之间被他人占用，或预留已过期。
	// 调用方需要重新预留。
	ErrConflict = errors.New("reservation conflict: capacity consumed or reservation expired")
	// ErrRoomNotFound 表示引用的房间不存在，属于调用方错误，不重试。
	ErrRoomNotFound = errors.New("room not found")
	// ErrUserNotFound 表示引用的用户不存在，属于调用方错误，不重试。
	ErrUserNotFound = errors.New("user not found")

	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed: username or email already exists")
	ErrInternalServer       = errors.New("internal server error")
)
