package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dreschagin/self-configuration/internal/application/port"
	"github.com/dreschagin/self-configuration/pkg/logger"
)

// ErrVaultNotConfigured возвращается, когда vault не подключен
var ErrVaultNotConfigured = errors.New("vault is not configured")

// ErrInvalidVaultKey возвращается для пустого ключа
var ErrInvalidVaultKey = errors.New("vault key must not be empty")

// VaultOverview описывает содержимое vault и попадания чтений
type VaultOverview struct {
	ItemCount    int            `json:"item_count"`
	SizeEstimate int            `json:"size_estimate"`
	VaultHits    port.HitStats  `json:"vault_hits"`
	CacheHits    *port.HitStats `json:"cache_hits,omitempty"`
	HitRate      float64        `json:"hit_rate"`
}

// ManageVaultUseCase обслуживает vault: статистика, проверка и удаление ключей.
// Очистка vault сбрасывает и кеш insights, чтобы не отдавать рассказ о забытом профиле.
type ManageVaultUseCase struct {
	vault  port.Vault
	cache  port.Cache
	logger *logger.Logger
}

// NewManageVaultUseCase создает use case. cache может быть nil.
func NewManageVaultUseCase(vault port.Vault, cache port.Cache, log *logger.Logger) *ManageVaultUseCase {
	return &ManageVaultUseCase{vault: vault, cache: cache, logger: log}
}

// Stats возвращает размер vault и суммарную долю попаданий vault и кеша
func (uc *ManageVaultUseCase) Stats(ctx context.Context) (*VaultOverview, error) {
	if uc.vault == nil {
		return nil, ErrVaultNotConfigured
	}

	stats, err := uc.vault.Stats(ctx)
	if err != nil {
		uc.logger.Error("Failed to read vault stats", err)
		return nil, fmt.Errorf("failed to read vault stats: %w", err)
	}

	overview := &VaultOverview{
		ItemCount:    stats.ItemCount,
		SizeEstimate: stats.SizeEstimate,
		VaultHits:    uc.vault.HitStats(),
	}
	total := overview.VaultHits
	if counter, ok := uc.cache.(port.HitCounter); ok {
		cacheHits := counter.HitStats()
		overview.CacheHits = &cacheHits
		total = total.Add(cacheHits)
	}
	overview.HitRate = total.HitRate()

	return overview, nil
}

// Has сообщает, хранится ли ключ
func (uc *ManageVaultUseCase) Has(ctx context.Context, key string) (bool, error) {
	key, err := uc.checkKey(key)
	if err != nil {
		return false, err
	}
	return uc.vault.Has(ctx, key)
}

// Delete удаляет ключ. Удаление профиля заставит следующий запрос прочитать его из репозитория.
func (uc *ManageVaultUseCase) Delete(ctx context.Context, key string) error {
	key, err := uc.checkKey(key)
	if err != nil {
		return err
	}
	if err := uc.vault.Delete(ctx, key); err != nil {
		uc.logger.Error("Failed to delete vault item", err, "key", key)
		return fmt.Errorf("failed to delete vault item: %w", err)
	}
	uc.logger.Info("Vault item deleted", "key", key)
	return nil
}

// Clear удаляет все ключи vault и закешированные insights
func (uc *ManageVaultUseCase) Clear(ctx context.Context) error {
	if uc.vault == nil {
		return ErrVaultNotConfigured
	}
	if err := uc.vault.Clear(ctx); err != nil {
		uc.logger.Error("Failed to clear vault", err)
		return fmt.Errorf("failed to clear vault: %w", err)
	}
	if uc.cache != nil {
		if err := uc.cache.DeletePattern(ctx, InsightCacheKey("*")); err != nil {
			uc.logger.Warn("Failed to drop cached insights", "error", err.Error())
		}
	}
	uc.logger.Info("Vault cleared")
	return nil
}

func (uc *ManageVaultUseCase) checkKey(key string) (string, error) {
	if uc.vault == nil {
		return "", ErrVaultNotConfigured
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrInvalidVaultKey
	}
	return key, nil
}
