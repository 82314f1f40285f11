package trigger

import "errors"

// Ошибки подсистемы триггеров.
var (
	// ErrTriggerNotFound — триггер не найден.
	ErrTriggerNotFound = errors.New("trigger not found")

	// ErrTriggerDisabled — триггер выключен.
	ErrTriggerDisabled = errors.New("trigger is disabled")

	// ErrWrongTriggerType — операция не применима к типу триггера.
	ErrWrongTriggerType = errors.New("wrong trigger type")

	// ErrMethodNotAllowed — HTTP метод webhook запроса не разрешён.
	ErrMethodNotAllowed = errors.New("method not allowed")

	// ErrIPNotAllowed — IP клиента не входит в allowlist.
	ErrIPNotAllowed = errors.New("client ip not allowed")

	// ErrHeaderMissing — обязательный заголовок отсутствует или
	// имеет неверное значение.
	ErrHeaderMissing = errors.New("required header missing or invalid")

	// ErrAuthFailed — секрет или подпись webhook запроса не прошли
	// проверку.
	ErrAuthFailed = errors.New("webhook authentication failed")
)
