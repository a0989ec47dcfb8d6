package datawarehouse_test

import (
	"context"
	"testing"
	"time"

	"github.com/fieldline/casework-api/internal/config"
	"github.com/fieldline/casework-api/internal/datawarehouse"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewClient_DisabledConfig(t *testing.T) {
	logger := zap.NewNop()

	// Test with nil config
	client, err := datawarehouse.NewClient(nil, logger)
	assert.NoError(t, err)
	assert.Nil(t, client)

	// Test with disabled config
	cfg := &config.DataWarehouseConfig{
		Enabled: false,
	}
	client, err = datawarehouse.NewClient(cfg, logger)
	assert.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewClient_MissingCredentials(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name    string
		cfg     *config.DataWarehouseConfig
		wantNil bool
		wantErr bool
	}{
		{
			name: "missing URL",
			cfg: &config.DataWarehouseConfig{
				Enabled:  true,
				URL:      "",
				User:     "user",
				Password: "pass",
			},
			wantNil: true,
			wantErr: false,
		},
		{
			name: "missing user",
			cfg: &config.DataWarehouseConfig{
				Enabled:  true,
				URL:      "host:1433/db",
				User:     "",
				Password: "pass",
			},
			wantNil: true,
			wantErr: false,
		},
		{
			name: "missing password",
			cfg: &config.DataWarehouseConfig{
				Enabled:  true,
				URL:      "host:1433/db",
				User:     "user",
				Password: "",
			},
			wantNil: true,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := datawarehouse.NewClient(tt.cfg, logger)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			if tt.wantNil {
				assert.Nil(t, client)
			}
		})
	}
}

func TestGetGeneralLedgerTableName(t *testing.T) {
	tests := []struct {
		name      string
		orgID     string
		wantTable string
		wantErr   bool
	}{
		{
			name:      "norwegian organization",
			orgID:     "fieldline-no",
			wantTable: "dbo.erp_fieldlinenorge_generalledgertransaction",
			wantErr:   false,
		},
		{
			name:      "swedish organization",
			orgID:     "fieldline-se",
			wantTable: "dbo.erp_fieldlinesverige_generalledgertransaction",
			wantErr:   false,
		},
		{
			name:      "danish organization",
			orgID:     "fieldline-dk",
			wantTable: "dbo.erp_fieldlinedanmark_generalledgertransaction",
			wantErr:   false,
		},
		{
			name:      "unknown organization",
			orgID:     "unknown",
			wantTable: "",
			wantErr:   true,
		},
		{
			name:      "empty organization",
			orgID:     "",
			wantTable: "",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tableName, err := datawarehouse.GetGeneralLedgerTableName(tt.orgID)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Empty(t, tableName)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantTable, tableName)
			}
		})
	}
}

func TestOrganizationMapping(t *testing.T) {
	// Verify all expected mappings exist
	expectedMappings := map[string]string{
		"fieldline-no": "fieldlinenorge",
		"fieldline-se": "fieldlinesverige",
		"fieldline-dk": "fieldlinedanmark",
	}

	for orgID, expectedPrefix := range expectedMappings {
		prefix, ok := datawarehouse.OrganizationMapping[orgID]
		assert.True(t, ok, "organization %s should exist in mapping", orgID)
		assert.Equal(t, expectedPrefix, prefix, "organization %s should map to %s", orgID, expectedPrefix)
	}

	// Verify there are exactly 3 mappings
	assert.Len(t, datawarehouse.OrganizationMapping, 3)
}

func TestClient_IsEnabled(t *testing.T) {
	// Nil client should return false
	var nilClient *datawarehouse.Client
	assert.False(t, nilClient.IsEnabled())
}

func TestClient_Close_NilClient(t *testing.T) {
	// Nil client close should not panic
	var nilClient *datawarehouse.Client
	err := nilClient.Close()
	assert.NoError(t, err)
}

func TestClient_HealthCheck_NilClient(t *testing.T) {
	// Nil client health check should return disabled status
	var nilClient *datawarehouse.Client
	status := nilClient.HealthCheck(context.Background())
	assert.NotNil(t, status)
	assert.Equal(t, "disabled", status.Status)
}

func TestClient_ExecuteQuery_NilClient(t *testing.T) {
	var nilClient *datawarehouse.Client
	_, err := nilClient.ExecuteQuery(context.Background(), "SELECT 1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
}

func TestClient_QueryRow_NilClient(t *testing.T) {
	var nilClient *datawarehouse.Client
	_, err := nilClient.QueryRow(context.Background(), "SELECT 1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
}

func TestClient_GetLedgerTotals_NilClient(t *testing.T) {
	var nilClient *datawarehouse.Client
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	_, err := nilClient.GetLedgerTotals(context.Background(), "fieldline-no", from, to)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
}

func TestClient_GetLedgerTotals_UnknownOrganization(t *testing.T) {
	var nilClient *datawarehouse.Client
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	_, err := nilClient.GetLedgerTotals(context.Background(), "unknown", from, to)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown organization")
}
