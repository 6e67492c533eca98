// Package shipment holds the normalized request and result model exchanged
// between the host order system and the label pipeline.
package shipment

// StoreSettings holds the carrier account and behaviour settings of one store.
type StoreSettings struct {
	StoreID       int
	AccountNumber string

	// Participations maps a product code to its two-digit participation number.
	Participations map[string]string

	Username string
	Password string
	Endpoint string
	UseMock  bool

	// CutOffTime is the local "HH:MM" after which shipments are dated the next day.
	CutOffTime    string
	ReturnAddress *Address
}

// SettingsProvider resolves carrier settings by store id.
type SettingsProvider interface {
	StoreSettings(storeID int) (StoreSettings, error)
}

// SettingsFunc adapts a function to SettingsProvider.
type SettingsFunc func(storeID int) (StoreSettings, error)

// StoreSettings implements SettingsProvider.
func (f SettingsFunc) StoreSettings(storeID int) (StoreSettings, error) {
	return f(storeID)
}
