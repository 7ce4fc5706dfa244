package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRentalConfig(t *testing.T) {
	base := DefaultRentalConfig()

	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, validateRentalConfig(base))
	})

	t.Run("zero cap means uncapped", func(t *testing.T) {
		cfg := base
		cfg.LateFeeMaxMinor = 0
		assert.NoError(t, validateRentalConfig(cfg))
	})

	t.Run("cap below fee rejected", func(t *testing.T) {
		cfg := base
		cfg.LateFeeMinor = 10000
		cfg.LateFeeMaxMinor = 5000
		assert.Error(t, validateRentalConfig(cfg))
	})

	t.Run("negative fee rejected", func(t *testing.T) {
		cfg := base
		cfg.LateFeeMinor = -1
		assert.Error(t, validateRentalConfig(cfg))
	})

	t.Run("due day out of range rejected", func(t *testing.T) {
		cfg := base
		cfg.DueDayOfMonth = 29
		assert.Error(t, validateRentalConfig(cfg))
	})

	t.Run("negative grace rejected", func(t *testing.T) {
		cfg := base
		cfg.GraceDays = -1
		assert.Error(t, validateRentalConfig(cfg))
	})
}
