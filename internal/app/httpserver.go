package app

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type HTTPServer struct {
	app  *fiber.App
	done chan struct{}
}

// StartHTTP поднимает API на addr и гасит его при отмене ctx.
func StartHTTP(ctx context.Context, addr string, a *fiber.App, log *zap.Logger) (*HTTPServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &HTTPServer{app: a, done: make(chan struct{})}

	go func() {
		if err := a.Listener(ln); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Error("http server stopped", zap.Error(err))
		}
	}()

	go func() {
		defer close(s.done)
		<-ctx.Done()
		if err := a.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Warn("http shutdown", zap.Error(err))
		}
	}()

	log.Info("http listening", zap.String("addr", ln.Addr().String()))
	return s, nil
}

// Wait ждёт завершения остановки сервера.
func (s *HTTPServer) Wait() { <-s.done }
