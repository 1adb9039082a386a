package util

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsInternalHost(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"localhost", true},
		{"LOCALHOST", true},
		{"api.internal", true},
		{"printer.local", true},
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"172.20.0.1", true},
		{"192.168.1.1", true},
		{"169.254.169.254", true},
		{"::1", true},
		{"[::1]", true},
		{"::ffff:127.0.0.1", true},
		{"fd00::1", true},
		{"8.8.8.8", false},
		{"172.32.0.1", false},
		{"example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.want, IsInternalHost(tt.host))
		})
	}
}

func TestETLDPlusOne(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://online.sberbank.ru/login", "sberbank.ru"},
		{"https://www.example.co.uk/", "example.co.uk"},
		{"http://EXAMPLE.com:8080", "example.com"},
		{"http://localhost/", "localhost"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			u, err := url.Parse(tt.raw)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, ETLDPlusOne(u))
		})
	}
}
