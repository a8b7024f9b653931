package session

import (
	"errors"

	"github.com/dalemusser/souqhub/internal/app/backend"
)

// Kind classifies a failed session operation.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidCredentials
	KindDuplicateRegistration
	KindEmailNotConfirmed
	KindInvalidInput
	// KindPartialSuccess: the account was created but its profile was not.
	KindPartialSuccess
	KindNotSignedIn
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindDuplicateRegistration:
		return "duplicate_registration"
	case KindEmailNotConfirmed:
		return "email_not_confirmed"
	case KindInvalidInput:
		return "invalid_input"
	case KindPartialSuccess:
		return "partial_success"
	case KindNotSignedIn:
		return "not_signed_in"
	default:
		return "unknown"
	}
}

// Error is returned by every Manager operation that fails.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Message is the text shown to the user.
func (e *Error) Message() string {
	switch e.Kind {
	case KindInvalidCredentials:
		return "بيانات الدخول غير صحيحة، تأكد من البريد الإلكتروني وكلمة المرور"
	case KindDuplicateRegistration:
		return "هذا البريد الإلكتروني مسجل بالفعل، الرجاء استخدام بريد آخر أو تسجيل الدخول"
	case KindEmailNotConfirmed:
		return "الرجاء تأكيد بريدك الإلكتروني قبل تسجيل الدخول"
	case KindInvalidInput:
		if errors.Is(e.Err, backend.ErrWeakPassword) {
			return "كلمة المرور يجب أن تكون على الأقل 6 أحرف"
		}
		return "البريد الإلكتروني غير صالح"
	case KindPartialSuccess:
		return "تم إنشاء حسابك ويمكنك تسجيل الدخول، لكن تعذر إكمال ملفك الشخصي"
	case KindNotSignedIn:
		return "يجب تسجيل الدخول أولاً"
	}
	switch e.Op {
	case opSignIn:
		return "حدث خطأ أثناء تسجيل الدخول"
	case opSignUp:
		return "حدث خطأ أثناء إنشاء الحساب"
	case opSignOut:
		return "حدث خطأ أثناء تسجيل الخروج"
	case opUpdateProfile:
		return "حدث خطأ أثناء تحديث الملف الشخصي"
	}
	return "حدث خطأ غير متوقع، الرجاء المحاولة مرة أخرى"
}

// KindOf returns the kind of a session error, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns the user-facing text for any error.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message()
	}
	return (&Error{}).Message()
}

func classify(op string, err error) *Error {
	kind := KindUnknown
	switch {
	case errors.Is(err, backend.ErrInvalidCredentials):
		kind = KindInvalidCredentials
	case errors.Is(err, backend.ErrAlreadyRegistered):
		kind = KindDuplicateRegistration
	case errors.Is(err, backend.ErrEmailNotConfirmed):
		kind = KindEmailNotConfirmed
	case errors.Is(err, backend.ErrWeakPassword), errors.Is(err, backend.ErrInvalidEmail):
		kind = KindInvalidInput
	}
	return &Error{Op: op, Kind: kind, Err: err}
}
