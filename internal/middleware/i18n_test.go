package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDetectLocale(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		fallback string
		want     string
	}{
		{
			name: "x-locale overrides",
			setup: func(r *http.Request) {
				r.Header.Set("X-Locale", "RU")
				r.Header.Set("Accept-Language", "en-US")
			},
			want: "ru",
		},
		{
			name: "accept-language used",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "en-US,en;q=0.9")
			},
			want: "en",
		},
		{
			name: "accept-language ru preference",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "ru-RU,en;q=0.8")
			},
			want: "ru",
		},
		{
			name:     "configured fallback",
			fallback: "ru",
			want:     "ru",
		},
		{
			name: "unknown locale maps to en",
			setup: func(r *http.Request) {
				r.Header.Set("X-Locale", "fr")
			},
			want: "en",
		},
		{
			name: "default to en",
			want: "en",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.setup != nil {
				tc.setup(req)
			}
			got := detectLocale(req, tc.fallback)
			if got != tc.want {
				t.Fatalf("detectLocale() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestLocaleFromContext(t *testing.T) {
	ctx := context.Background()
	if got := LocaleFromContext(ctx); got != "en" {
		t.Fatalf("LocaleFromContext() default = %q, want %q", got, "en")
	}
	ctx = context.WithValue(ctx, LocaleKey, "ru")
	if got := LocaleFromContext(ctx); got != "ru" {
		t.Fatalf("LocaleFromContext() with value = %q, want %q", got, "ru")
	}
}
