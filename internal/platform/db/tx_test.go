package db

import (
	"context"
	"testing"
)

func TestTxFromContext_Empty(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Errorf("expected nil tx, got %v", tx)
	}
	if conn := ConnFromContext(context.Background()); conn != nil {
		t.Errorf("expected nil conn, got %v", conn)
	}
}
