package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// OrganizationRole defines the role of an organization in the supply chain
type OrganizationRole string

const (
	// ManufacturerRole represents a medicine manufacturer
	ManufacturerRole OrganizationRole = "manufacturer"
	// DistributorRole represents an intermediate distributor
	DistributorRole OrganizationRole = "distributor"
	// PharmacyRole represents a dispensing pharmacy
	PharmacyRole OrganizationRole = "pharmacy"
	// AdminRole represents the platform administrator
	AdminRole OrganizationRole = "admin"
)

// Organization represents a registered supply-chain participant
type Organization struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt   `gorm:"index" json:"-"`
	Name      string           `gorm:"not null" json:"name"`
	Role      OrganizationRole `gorm:"not null" json:"role"`
	APIKey    string           `gorm:"uniqueIndex;not null" json:"-"`
	Address   []byte           `gorm:"type:jsonb" json:"address"`
	Active    bool             `gorm:"not null;default:true" json:"active"`
}

// Medicine represents a registered medicine pending or past admin verification
type Medicine struct {
	ID                    uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt             time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`
	OrganizationID        uuid.UUID      `gorm:"type:uuid;not null" json:"organization_id"`
	Name                  string         `gorm:"not null" json:"name"`
	BrandName             string         `json:"brand_name"`
	Composition           string         `json:"composition"`
	DosageForm            string         `json:"dosage_form"`
	Strength              string         `json:"strength"`
	DrugCode              string         `json:"drug_code"`
	HSNCode               string         `json:"hsn_code"`
	Category              string         `json:"category"`
	StorageConditions     string         `json:"storage_conditions"`
	Verified              bool           `gorm:"not null;default:false" json:"verified"`
	Organization          Organization   `gorm:"foreignKey:OrganizationID" json:"-"`
}

// Batch represents a minted, quality-verified production lot of one medicine.
// BlockchainMintID doubles as the human batch number and is globally unique,
// as is the mint transaction hash.
type Batch struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
	MedicineID        uuid.UUID      `gorm:"type:uuid;not null" json:"medicine_id"`
	OrganizationID    uuid.UUID      `gorm:"type:uuid;not null" json:"organization_id"`
	BlockchainMintID  string         `gorm:"uniqueIndex;not null" json:"blockchain_mint_id"`
	BlockchainTxHash  *string        `gorm:"uniqueIndex" json:"blockchain_tx_hash"`
	BlockchainNetwork string         `gorm:"not null;default:mainnet" json:"blockchain_network"`
	BatchQuantity     int64          `gorm:"not null" json:"batch_quantity"`
	RemainingQuantity int64          `gorm:"not null" json:"remaining_quantity"`
	IsActive          bool           `gorm:"not null;default:true" json:"is_active"`
	IsQualityVerified bool           `gorm:"not null;default:false" json:"is_quality_verified"`
	ManufacturingDate time.Time      `json:"manufacturing_date"`
	ExpiryDate        time.Time      `json:"expiry_date"`
	WarehouseLocation *string        `json:"warehouse_location"`
	Medicine          Medicine       `gorm:"foreignKey:MedicineID" json:"-"`
	Organization      Organization   `gorm:"foreignKey:OrganizationID" json:"-"`
}

// Expired reports whether the batch expiry date has passed
func (b *Batch) Expired(now time.Time) bool {
	return b.ExpiryDate.Before(now)
}

// ShipmentStatus defines the custody state of a shipment
type ShipmentStatus string

const (
	// ShipmentCreated represents a shipment held by its source organization
	ShipmentCreated ShipmentStatus = "CREATED"
	// ShipmentForwarded represents a shipment handed off and awaiting a scan
	ShipmentForwarded ShipmentStatus = "FORWARDED"
	// ShipmentReceived represents a shipment accepted by the expected holder
	ShipmentReceived ShipmentStatus = "RECEIVED"
	// ShipmentRedeemed represents a shipment redeemed at its destination
	ShipmentRedeemed ShipmentStatus = "REDEEMED"
)

// Shipment represents a fixed quantity of one batch moving through a
// chain of custody. The tracking code is rotated on every forward hop.
type Shipment struct {
	ID                      uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt               time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt               gorm.DeletedAt `gorm:"index" json:"-"`
	BatchID                 uuid.UUID      `gorm:"type:uuid;not null" json:"batch_id"`
	TrackingCode            string         `gorm:"uniqueIndex;not null" json:"tracking_code"`
	SourceOrgID             uuid.UUID      `gorm:"type:uuid;not null" json:"source_org_id"`
	DestinationOrgID        uuid.UUID      `gorm:"type:uuid;not null" json:"destination_org_id"`
	CurrentHolderOrgID      uuid.UUID      `gorm:"type:uuid;not null" json:"current_holder_org_id"`
	NextExpectedHolderOrgID *uuid.UUID     `gorm:"type:uuid" json:"next_expected_holder_org_id"`
	Status                  ShipmentStatus `gorm:"not null" json:"status"`
	Escrowed                bool           `gorm:"not null;default:true" json:"escrowed"`
	Redeemed                bool           `gorm:"not null;default:false" json:"redeemed"`
	IsActive                bool           `gorm:"not null;default:true" json:"is_active"`
	MedicinesAmount         int64          `gorm:"not null" json:"medicines_amount"`
	IdempotencyKey          *uuid.UUID     `gorm:"type:uuid;uniqueIndex" json:"idempotency_key,omitempty"`
	DepositTxHash           *string        `json:"deposit_tx_hash"`
	RedeemTxHash            *string        `json:"redeem_tx_hash"`
	Batch                   Batch          `gorm:"foreignKey:BatchID" json:"-"`
}

// Terminal reports whether no further custody transitions are permitted
func (s *Shipment) Terminal() bool {
	return !s.IsActive || s.Redeemed
}

// LogAction defines the type of custody event recorded in the audit trail
type LogAction string

const (
	// LogActionCreated records shipment creation and escrow initiation
	LogActionCreated LogAction = "CREATED"
	// LogActionForwarded records a hand-off to the next holder
	LogActionForwarded LogAction = "FORWARDED"
	// LogActionReceived records acceptance by the expected holder
	LogActionReceived LogAction = "RECEIVED"
	// LogActionRedeemed records terminal redemption at the destination
	LogActionRedeemed LogAction = "REDEEMED"
)

// ShipmentLog is an append-only audit record of one custody event.
// Location carries the acting organization's address snapshot verbatim.
type ShipmentLog struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	ShipmentID     uuid.UUID `gorm:"type:uuid;not null;index" json:"shipment_id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null" json:"organization_id"`
	Action         LogAction `gorm:"not null" json:"action"`
	Location       []byte    `gorm:"type:jsonb" json:"location"`
	Temperature    *float64  `json:"temperature"`
	Notes          string    `json:"notes"`
	Indexed        bool      `gorm:"not null;default:false" json:"-"`
}

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Organization{},
		&Medicine{},
		&Batch{},
		&Shipment{},
		&ShipmentLog{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}

// StatusFromString converts a string to a ShipmentStatus
func StatusFromString(status string) ShipmentStatus {
	switch status {
	case "CREATED":
		return ShipmentCreated
	case "FORWARDED":
		return ShipmentForwarded
	case "RECEIVED":
		return ShipmentReceived
	case "REDEEMED":
		return ShipmentRedeemed
	default:
		return ""
	}
}
