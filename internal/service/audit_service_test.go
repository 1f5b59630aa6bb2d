package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"atm-gateway/internal/core/domain"
	"atm-gateway/internal/core/ports/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

// syncBuffer lets the audit goroutine and the test share a log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func TestAuditService_Log_PersistsToRepo(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockAuditRepository(ctrl)
	svc := NewAuditService(mockRepo, newTestLogger())

	done := make(chan struct{})
	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, log *domain.AuditLog) error {
			if log.Action != domain.AuditActionWithdraw {
				t.Errorf("expected WITHDRAW, got %s", log.Action)
			}
			close(done)
			return nil
		},
	)

	svc.Log(context.Background(), domain.NewAuditLog("1234", domain.AuditActionWithdraw, 500))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("audit log not persisted in time")
	}
}

func TestAuditService_Log_PersistFailureIsLogged(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	var buf syncBuffer
	mockRepo := mocks.NewMockAuditRepository(ctrl)
	svc := NewAuditService(mockRepo, zerolog.New(&buf))

	done := make(chan struct{})
	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, *domain.AuditLog) error {
			defer close(done)
			return errors.New("db down")
		},
	)

	svc.Log(context.Background(), domain.NewAuditLog("1234", domain.AuditActionLogin, 0))

	<-done
	assert.Eventually(t, func() bool {
		return bytes.Contains(buf.Bytes(), []byte("failed to persist audit log"))
	}, time.Second, 10*time.Millisecond)
}

func TestAuditService_Log_NilRepo(t *testing.T) {
	var buf syncBuffer
	svc := NewAuditService(nil, zerolog.New(&buf))

	svc.Log(context.Background(), domain.NewAuditLog("0042", domain.AuditActionLogout, 0))

	assert.Contains(t, string(buf.Bytes()), `"action":"LOGOUT"`)
	assert.Contains(t, string(buf.Bytes()), `"card_nr":"0042"`)
}
