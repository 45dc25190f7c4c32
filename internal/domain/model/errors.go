package model

import "errors"

// Доменные ошибки. Оборачиваются через fmt.Errorf("...: %w", err),
// проверяются через errors.Is.
var (
	// ErrInvalidInput — некорректные входные данные (ошибка клиента)
	ErrInvalidInput = errors.New("некорректные входные данные")
	// ErrNotFound — запись с указанным идентификатором не найдена
	ErrNotFound = errors.New("запись не найдена")
	// ErrDuplicateID — запись с таким идентификатором уже существует
	ErrDuplicateID = errors.New("идентификатор уже существует")
)
