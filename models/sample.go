package models

import "time"

// TissueType is a lookup value referenced by samples.
type TissueType struct {
	ID          string    `gorm:"column:id;primaryKey" json:"id"`
	Name        string    `gorm:"column:name;uniqueIndex" json:"name"`
	Description string    `gorm:"column:description" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (TissueType) TableName() string { return "tissue_types" }

// Sample is a scanned (or to be scanned) specimen. DziPath points at the
// deep-zoom descriptor served by the tile server.
type Sample struct {
	ID           string      `gorm:"column:id;primaryKey" json:"id"`
	Code         string      `gorm:"column:code;uniqueIndex" json:"code"`
	Description  string      `gorm:"column:description" json:"description,omitempty"`
	IsScanned    bool        `gorm:"column:is_scanned" json:"isScanned"`
	TissueTypeID *string     `gorm:"column:tissue_type_id" json:"tissueTypeId,omitempty"`
	TissueType   *TissueType `gorm:"foreignKey:TissueTypeID" json:"tissueType,omitempty"`
	DziPath      string      `gorm:"column:dzi_path" json:"dziPath,omitempty"`
	CreatedBy    string      `gorm:"column:created_by" json:"createdBy"`
	CreatedAt    time.Time   `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt    time.Time   `gorm:"column:updated_at" json:"updatedAt"`
}

func (Sample) TableName() string { return "samples" }

// FormDetail is the pathology form attached to a sample; at most one per sample.
type FormDetail struct {
	ID                 string     `gorm:"column:id;primaryKey" json:"id"`
	SampleID           string     `gorm:"column:sample_id;uniqueIndex" json:"sampleId"`
	PatientName        string     `gorm:"column:patient_name" json:"patientName"`
	BirthDate          *time.Time `gorm:"column:birth_date" json:"birthDate,omitempty"`
	PatientID          string     `gorm:"column:patient_id" json:"patientId"`
	ProcedureDate      *time.Time `gorm:"column:procedure_date" json:"procedureDate,omitempty"`
	SampleType         string     `gorm:"column:sample_type" json:"sampleType,omitempty"`
	AnatomicalLocation string     `gorm:"column:anatomical_location" json:"anatomicalLocation,omitempty"`
	Dimensions         string     `gorm:"column:dimensions" json:"dimensions,omitempty"`
	Texture            string     `gorm:"column:texture" json:"texture,omitempty"`
	CellType           string     `gorm:"column:cell_type" json:"cellType,omitempty"`
	Ki67Index          *float64   `gorm:"column:ki67_index" json:"ki67Index,omitempty"`
	Her2Status         string     `gorm:"column:her2_status" json:"her2Status,omitempty"`
	BrcaType           string     `gorm:"column:brca_type" json:"brcaType,omitempty"`
	TNMClassification  string     `gorm:"column:tnm_classification" json:"tnmClassification,omitempty"`
	Recommendations    string     `gorm:"column:recommendations" json:"recommendations,omitempty"`
	CreatedAt          time.Time  `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt          time.Time  `gorm:"column:updated_at" json:"updatedAt"`
}

func (FormDetail) TableName() string { return "form_details" }
