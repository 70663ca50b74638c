package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	c := Default()
	c.URL = "https://www.youtube.com/@somechannel"
	return c
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "empty url", mutate: func(c *Config) { c.URL = "" }, wantErr: true},
		{name: "url without host", mutate: func(c *Config) { c.URL = "not-a-url" }, wantErr: true},
		{name: "zero max videos", mutate: func(c *Config) { c.MaxVideos = 0 }, wantErr: true},
		{name: "negative offset", mutate: func(c *Config) { c.Offset = -1 }, wantErr: true},
		{name: "negative delay", mutate: func(c *Config) { c.Delay = -time.Second }, wantErr: true},
		{name: "negative retries", mutate: func(c *Config) { c.MaxRetries = -1 }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsChannel(t *testing.T) {
	c := validConfig()
	assert.True(t, c.IsChannel())

	c.URL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	assert.False(t, c.IsChannel())
}

func TestDeriveOutputDir(t *testing.T) {
	tests := []struct {
		name string
		url  string
		out  string
		want string
	}{
		{name: "explicit dir wins", url: "https://www.youtube.com/@chan", out: "/tmp/x", want: "/tmp/x"},
		{name: "channel handle", url: "https://www.youtube.com/@somechannel", want: "output/somechannel"},
		{name: "channel handle with subpath", url: "https://www.youtube.com/@somechannel/videos", want: "output/somechannel"},
		{name: "video id", url: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", want: "output/dQw4w9WgXcQ"},
		{name: "bare host", url: "https://www.youtube.com", want: "output"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.URL = tt.url
			c.OutputDir = tt.out
			assert.Equal(t, tt.want, c.DeriveOutputDir())
		})
	}
}
