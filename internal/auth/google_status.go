package auth

import "strings"

// placeholderValues は.env.exampleなどに残りがちな未設定扱いの値。
var placeholderValues = map[string]struct{}{
	"your-google-client-id":     {},
	"your-google-client-secret": {},
	"your-nextauth-secret":      {},
	"your-secret-key":           {},
	"placeholder":               {},
	"changeme":                  {},
}

// GoogleLoginAvailable はGoogleログインに必要な3つの設定値が
// 全て実値で埋まっているかを返す。外部呼び出しは行わない。
func GoogleLoginAvailable(clientID, clientSecret, nextAuthSecret string) bool {
	for _, v := range []string{clientID, clientSecret, nextAuthSecret} {
		if !isRealValue(v) {
			return false
		}
	}
	return true
}

func isRealValue(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	_, placeholder := placeholderValues[strings.ToLower(v)]
	return !placeholder
}
