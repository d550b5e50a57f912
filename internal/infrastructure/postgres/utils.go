package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/invorya-ledger/internal/domain"
)

// Códigos SQLSTATE que el núcleo distingue.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// mapError traduce los errores de PostgreSQL a los errores de dominio. op describe la operación.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeLockNotAvailable:
			return fmt.Errorf("%s: %v: %w", op, pgErr.Message, domain.ErrLockTimeout)
		case codeSerializationFailure, codeDeadlockDetected:
			return fmt.Errorf("%s: %v: %w", op, pgErr.Message, domain.ErrSerialization)
		case codeUniqueViolation:
			return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, domain.ErrDuplicate)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// translate solo reescribe los errores de PostgreSQL que aún no fueron mapeados.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapError("transaction", err)
	}
	return err
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
