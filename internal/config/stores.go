package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/tournevent/labelbridge/pkg/mapper"
	"github.com/tournevent/labelbridge/pkg/shipment"
)

// StoresFile is the layout of the per-store settings file.
type StoresFile struct {
	Stores []StoreConfig `mapstructure:"stores"`
}

// StoreConfig holds the carrier settings of one store.
type StoreConfig struct {
	ID             int               `mapstructure:"id"`
	AccountNumber  string            `mapstructure:"account_number"`
	Participations map[string]string `mapstructure:"participations"`
	Username       string            `mapstructure:"username"`
	Password       string            `mapstructure:"password"`
	Endpoint       string            `mapstructure:"endpoint"`
	UseMock        bool              `mapstructure:"use_mock"`
	CutOffTime     string            `mapstructure:"cut_off_time"`
	ReturnAddress  *AddressConfig    `mapstructure:"return_address"`
}

// AddressConfig is a return address as written in the settings file.
type AddressConfig struct {
	Name         string `mapstructure:"name"`
	Company      string `mapstructure:"company"`
	Street       string `mapstructure:"street"`
	StreetNumber string `mapstructure:"street_number"`
	City         string `mapstructure:"city"`
	PostalCode   string `mapstructure:"postal_code"`
	CountryCode  string `mapstructure:"country_code"`
	Phone        string `mapstructure:"phone"`
	Email        string `mapstructure:"email"`
}

// Stores is an in-memory SettingsProvider loaded from the settings file.
type Stores struct {
	settings map[int]shipment.StoreSettings
}

// LoadStores reads the per-store settings file at path.
func LoadStores(path string) (*Stores, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read store config failed: %w", err)
	}

	var file StoresFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("unmarshal store config failed: %w", err)
	}
	return NewStores(file)
}

// NewStores validates file and indexes its stores by id.
func NewStores(file StoresFile) (*Stores, error) {
	s := &Stores{settings: make(map[int]shipment.StoreSettings, len(file.Stores))}
	for _, store := range file.Stores {
		if store.ID <= 0 {
			return nil, fmt.Errorf("store id must be positive, got %d", store.ID)
		}
		if _, ok := s.settings[store.ID]; ok {
			return nil, fmt.Errorf("store %d is configured twice", store.ID)
		}
		if len(store.AccountNumber) != 10 {
			return nil, fmt.Errorf("store %d: account_number must have 10 digits", store.ID)
		}
		s.settings[store.ID] = store.settings()
	}
	return s, nil
}

// StoreSettings implements shipment.SettingsProvider.
func (s *Stores) StoreSettings(storeID int) (shipment.StoreSettings, error) {
	settings, ok := s.settings[storeID]
	if !ok {
		return shipment.StoreSettings{}, fmt.Errorf("%w: %d", shipment.ErrStoreNotConfigured, storeID)
	}
	return settings, nil
}

// Len returns the number of configured stores.
func (s *Stores) Len() int {
	return len(s.settings)
}

func (c StoreConfig) settings() shipment.StoreSettings {
	// viper lowercases map keys; product codes are upper case.
	participations := make(map[string]string, len(c.Participations))
	for key, value := range c.Participations {
		if !strings.EqualFold(key, mapper.ReturnParticipationKey) {
			key = strings.ToUpper(key)
		}
		participations[key] = value
	}

	settings := shipment.StoreSettings{
		StoreID:        c.ID,
		AccountNumber:  c.AccountNumber,
		Participations: participations,
		Username:       c.Username,
		Password:       c.Password,
		Endpoint:       c.Endpoint,
		UseMock:        c.UseMock,
		CutOffTime:     c.CutOffTime,
	}
	if a := c.ReturnAddress; a != nil {
		settings.ReturnAddress = &shipment.Address{
			Name:         a.Name,
			Company:      a.Company,
			Street:       a.Street,
			StreetNumber: a.StreetNumber,
			City:         a.City,
			PostalCode:   a.PostalCode,
			CountryCode:  a.CountryCode,
			Phone:        a.Phone,
			Email:        a.Email,
		}
	}
	return settings
}
