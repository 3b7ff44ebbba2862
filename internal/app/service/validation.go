package service

import (
	"math"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"taskhub/internal/common"
	"taskhub/internal/domain/model"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 50
	maxEmailLength    = 255
	minPasswordLength = 8
	maxPasswordBytes  = 72 // bcrypt ignores anything longer

	defaultPageSize = 20
	maxPageSize     = 100
	maxPage         = math.MaxInt32 / maxPageSize
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < minUsernameLength || n > maxUsernameLength {
		return common.Validationf("username must be between %d and %d characters", minUsernameLength, maxUsernameLength)
	}
	for _, r := range username {
		if !(r == '_' || r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))) {
			return common.Validationf("username may only contain letters, digits and underscores")
		}
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" || len(email) > maxEmailLength {
		return common.Validationf("email must be between 1 and %d characters", maxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return common.Validationf("email is not a valid address")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordBytes {
		return common.Validationf("password must be between %d and %d bytes", minPasswordLength, maxPasswordBytes)
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return common.Validationf("password must contain at least one letter and one digit")
	}
	return nil
}

func validateTitle(title string) error {
	if title == "" {
		return common.Validationf("title is required")
	}
	if utf8.RuneCountInString(title) > model.MaxTaskTitleLength {
		return common.Validationf("title must be at most %d characters", model.MaxTaskTitleLength)
	}
	return nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(description) > model.MaxTaskDescriptionLength {
		return common.Validationf("description must be at most %d characters", model.MaxTaskDescriptionLength)
	}
	return nil
}

// normalizeUserUpdate trims and validates every set field. It returns the
// cleaned update or an error before anything reaches storage.
func normalizeUserUpdate(u model.UserUpdate) (model.UserUpdate, error) {
	if u.Empty() {
		return u, common.ErrNoFieldsToUpdate
	}
	if u.Username.Set {
		if u.Username.Null {
			return u, common.Validationf("username cannot be null")
		}
		u.Username.Value = strings.TrimSpace(u.Username.Value)
		if err := validateUsername(u.Username.Value); err != nil {
			return u, err
		}
	}
	if u.Email.Set {
		if u.Email.Null {
			return u, common.Validationf("email cannot be null")
		}
		u.Email.Value = normalizeEmail(u.Email.Value)
		if err := validateEmail(u.Email.Value); err != nil {
			return u, err
		}
	}
	if u.Role.Set {
		if u.Role.Null || !u.Role.Value.Valid() {
			return u, common.Validationf("role must be one of user, admin")
		}
	}
	return u, nil
}

func normalizeTaskUpdate(u model.TaskUpdate) (model.TaskUpdate, error) {
	if u.Empty() {
		return u, common.ErrNoFieldsToUpdate
	}
	if u.Title.Set {
		if u.Title.Null {
			return u, common.Validationf("title cannot be null")
		}
		u.Title.Value = strings.TrimSpace(u.Title.Value)
		if err := validateTitle(u.Title.Value); err != nil {
			return u, err
		}
	}
	if u.Description.Set && !u.Description.Null {
		if err := validateDescription(u.Description.Value); err != nil {
			return u, err
		}
		if strings.TrimSpace(u.Description.Value) == "" {
			u.Description = model.Null[string]()
		}
	}
	if u.Status.Set && (u.Status.Null || !u.Status.Value.Valid()) {
		return u, common.Validationf("status must be one of pending, in_progress, completed, cancelled")
	}
	if u.Priority.Set && (u.Priority.Null || !u.Priority.Value.Valid()) {
		return u, common.Validationf("priority must be one of low, medium, high, urgent")
	}
	return u, nil
}

// pageBounds clamps the page size to [1, maxPageSize] and returns the matching
// limit/offset. A page whose offset would not fit in an int is rejected.
func pageBounds(page, pageSize int) (int, int, int, int, error) {
	if page <= 0 {
		page = 1
	}
	switch {
	case pageSize <= 0:
		pageSize = defaultPageSize
	case pageSize > maxPageSize:
		pageSize = maxPageSize
	}
	if page > maxPage {
		return 0, 0, 0, 0, common.Validationf("page must be at most %d", maxPage)
	}
	return page, pageSize, pageSize, (page - 1) * pageSize, nil
}
