package port

import (
	"context"
	"errors"
)

// ErrVaultItemNotFound возвращается при чтении отсутствующего ключа
var ErrVaultItemNotFound = errors.New("vault item not found")

// VaultStats содержит сведения о содержимом хранилища
type VaultStats struct {
	ItemCount    int `json:"item_count"`
	SizeEstimate int `json:"size_estimate"`
}

// Vault определяет key-value хранилище настроек (Port).
// Кодирование значений обратимо (base64 от JSON) и НЕ является механизмом защиты данных.
type Vault interface {
	// Store сохраняет значение под ключом
	Store(ctx context.Context, key string, value interface{}) error

	// Retrieve читает значение в dest; ErrVaultItemNotFound если ключа нет
	Retrieve(ctx context.Context, key string, dest interface{}) error

	// Delete удаляет ключ, отсутствие ключа не считается ошибкой
	Delete(ctx context.Context, key string) error

	// Has сообщает, есть ли ключ
	Has(ctx context.Context, key string) (bool, error)

	// Clear удаляет все ключи
	Clear(ctx context.Context) error

	// Stats возвращает количество элементов и оценку размера
	Stats(ctx context.Context) (VaultStats, error)

	// HitStats возвращает счетчики попаданий и промахов Retrieve
	HitStats() HitStats
}
