package user

import (
	"bufio"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/karo/core"
	appfs "github.com/trezcool/karo/fs"
)

var (
	roleTag  = "role"
	roleText = "invalid role"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdComplexityTag  = "pwdcplx"
	pwdComplexityText = "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"
	specialRegex      = regexp.MustCompile("[^A-Za-z0-9]")

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"

	pwdNoCommonTag  = "pwdnocommon"
	pwdNoCommonText = "password is too common"

	commonPasswords   []string
	commonPasswordsMu sync.RWMutex
)

// InitValidators registers the user validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(validate, translator, roleTag, roleText)

	validate.RegisterStructValidation(userStructValidation, NewUser{}, UpdateUser{}, ResetUserPassword{})
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdComplexityTag, pwdComplexityText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
	core.RegisterCustomTranslation(validate, translator, pwdNoCommonTag, pwdNoCommonText)
}

// LoadCommonPasswords loads the embedded list of passwords too common to be accepted.
func LoadCommonPasswords(logger core.Logger) {
	file, err := appfs.FS.Open("assets/common-passwords.txt")
	if err != nil {
		logger.Error(fmt.Sprintf("opening common passwords: %v", err), err)
		return
	}
	defer file.Close()

	pwds := make([]string, 0, 64)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if pwd := strings.TrimSpace(scanner.Text()); pwd != "" {
			pwds = append(pwds, strings.ToLower(pwd))
		}
	}
	if err = scanner.Err(); err != nil {
		logger.Error(fmt.Sprintf("reading common passwords: %v", err), err)
	}
	sort.Strings(pwds)

	commonPasswordsMu.Lock()
	commonPasswords = pwds
	commonPasswordsMu.Unlock()
}

// Custom Validators

func roleValidation(fl validator.FieldLevel) bool {
	if role, ok := fl.Field().Interface().(Role); ok {
		return role.IsValid()
	}
	return Role(fl.Field().String()).IsValid()
}

// userStructValidation applies the password policy on NewUser, UpdateUser and ResetUserPassword.
func userStructValidation(sl validator.StructLevel) {
	switch usr := sl.Current().Interface().(type) {
	case NewUser:
		if usr.Password != "" {
			validatePassword(usr.Password, usr.FullName, usr.Email, sl)
		}
	case UpdateUser:
		if usr.Password != "" {
			validatePassword(usr.Password, usr.FullName, usr.Email, sl)
		}
	case ResetUserPassword:
		validatePassword(usr.Password, "", "", sl)
	}
}

// validatePassword applies the password policy to provided password:
// - minLen: 8
// - no whitespace
// - no all numeric
// - complexity: 1 upper, 1 lower, 1 digit, 1 special
// - no user attrs similarity
// - no common password
func validatePassword(pwd, name, email string, sl validator.StructLevel) {
	reportErr := func(tag string) {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}

	var (
		digitCount                             int
		hasUpper, hasLower, hasDig, hasSpecial bool
	)

	// - minLen: 8
	pwdLen := len([]rune(pwd))
	if pwdLen < pwdMinLen {
		reportErr(pwdMinLenTag)
		return
	}
	for _, char := range pwd {
		// - no whitespace
		if unicode.IsSpace(char) {
			reportErr(pwdNoSpaceTag)
			return
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
		if !hasUpper && unicode.IsUpper(char) {
			hasUpper = true
		}
		if !hasLower && unicode.IsLower(char) {
			hasLower = true
		}
	}

	// - not all numeric
	if digitCount == pwdLen {
		reportErr(pwdNotAllNumTag)
		return
	}

	// - complexity: 1 upper, 1 lower, 1 digit & 1 special
	hasDig = digitCount > 0
	hasSpecial = specialRegex.MatchString(pwd)
	if !(hasUpper && hasLower && hasDig && hasSpecial) {
		reportErr(pwdComplexityTag)
		return
	}

	// - no user attrs similarity
	getRatio := func(pass, usrAttr string) float64 {
		if usrAttr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(pass, ""), strings.Split(usrAttr, "")).QuickRatio()
	}
	lpwd := strings.ToLower(pwd)
	emailName := strings.SplitN(email, "@", 2)[0]
	if getRatio(lpwd, strings.ToLower(name)) >= pwdMaxSim ||
		getRatio(lpwd, strings.ToLower(emailName)) >= pwdMaxSim ||
		getRatio(lpwd, strings.ToLower(email)) >= pwdMaxSim {
		reportErr(pwdAttrSimTag)
		return
	}

	// - no common passwords
	commonPasswordsMu.RLock()
	defer commonPasswordsMu.RUnlock()
	if idx := sort.SearchStrings(commonPasswords, lpwd); idx < len(commonPasswords) {
		if commonPasswords[idx] == lpwd {
			reportErr(pwdNoCommonTag)
		}
	}
}
