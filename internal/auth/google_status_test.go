package auth

import "testing"

func TestGoogleLoginAvailable(t *testing.T) {
	tests := []struct {
		name         string
		clientID     string
		clientSecret string
		secret       string
		want         bool
	}{
		{"all real values", "123.apps.googleusercontent.com", "GOCSPX-abc", "s3cr3t", true},
		{"surrounding whitespace is ignored", " 123.apps ", " GOCSPX-abc ", " s3cr3t ", true},
		{"empty client id", "", "GOCSPX-abc", "s3cr3t", false},
		{"empty client secret", "123.apps", "", "s3cr3t", false},
		{"empty nextauth secret", "123.apps", "GOCSPX-abc", "", false},
		{"whitespace only", "   ", "GOCSPX-abc", "s3cr3t", false},
		{"placeholder client id", "your-google-client-id", "GOCSPX-abc", "s3cr3t", false},
		{"placeholder client secret", "123.apps", "your-google-client-secret", "s3cr3t", false},
		{"placeholder nextauth secret", "123.apps", "GOCSPX-abc", "your-nextauth-secret", false},
		{"generic placeholder", "123.apps", "GOCSPX-abc", "changeme", false},
		{"placeholder case-insensitive", "123.apps", "GOCSPX-abc", "YOUR-SECRET-KEY", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GoogleLoginAvailable(tt.clientID, tt.clientSecret, tt.secret)
			if got != tt.want {
				t.Errorf("GoogleLoginAvailable() = %v, want %v", got, tt.want)
			}
		})
	}
}
