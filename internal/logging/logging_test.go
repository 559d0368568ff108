package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewHandler(t *testing.T) {
	tests := []struct {
		name      string
		debug     bool
		wantDebug bool
	}{
		{name: "info level", debug: false, wantDebug: false},
		{name: "debug level", debug: true, wantDebug: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(NewHandler(tt.debug, &buf))

			logger.Debug("debug line")
			logger.Info("settled", slog.Uint64("purchase_id", 7))

			out := buf.String()
			assert.Contains(t, out, "settled")
			assert.Contains(t, out, "purchase_id=7")
			assert.Equal(t, tt.wantDebug, bytes.Contains(buf.Bytes(), []byte("debug line")))
		})
	}
}

func TestNewHandlerNoColorForBuffers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(false, &buf))

	logger.Error("charge failed", slog.Any("err", errors.New("boom")))

	assert.Contains(t, buf.String(), "boom")
	assert.NotContains(t, buf.String(), "\x1b[")
}
