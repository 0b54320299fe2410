package core

import (
	"errors"
	"testing"
)

func TestValidateSection(t *testing.T) {
	tests := []struct {
		name    string
		section *Section
		wantErr error
	}{
		{
			name: "valid section",
			section: &Section{
				ID:        "BSI_EN_1991-1-1_4.2.3",
				Code:      "4.2.3",
				Title:     "Density",
				Page:      18,
				Content:   "Densities of construction materials.",
				DocPrefix: "BSI_EN_1991-1-1",
			},
			wantErr: nil,
		},
		{
			name: "valid section without prefix",
			section: &Section{
				ID:    "BSI_EN_1990_1.1",
				Code:  "1.1",
				Title: "Scope",
			},
			wantErr: nil,
		},
		{
			name: "empty content allowed",
			section: &Section{
				ID:        "BSI_EN_1990_gap_12",
				DocPrefix: "BSI_EN_1990",
			},
			wantErr: nil,
		},
		{
			name: "page zero allowed",
			section: &Section{
				ID:   "BSI_EN_1990_foreword",
				Page: 0,
			},
			wantErr: nil,
		},
		{
			name:    "nil section",
			section: nil,
			wantErr: ErrInvalidSection,
		},
		{
			name:    "empty id",
			section: &Section{Title: "Density"},
			wantErr: ErrEmptyID,
		},
		{
			name: "prefix mismatch",
			section: &Section{
				ID:        "BSI_EN_1990_1.1",
				DocPrefix: "BSI_EN_1991-1-1",
			},
			wantErr: ErrPrefixMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSection(tt.section)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateSection() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateSection() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidSection) {
				t.Errorf("ValidateSection() error = %v, want wrapped ErrInvalidSection", err)
			}
		})
	}
}

func TestValidateObject(t *testing.T) {
	tests := []struct {
		name    string
		object  *Object
		wantErr error
	}{
		{
			name: "valid table",
			object: &Object{
				ID:    "BSI_EN_1991-1-1_Table_6.2",
				Type:  ObjectTypeTable,
				Code:  "Table_6.2",
				Title: "Imposed loads on floors",
				DocID: "BSI_EN_1991-1-1",
			},
			wantErr: nil,
		},
		{
			name: "valid figure",
			object: &Object{
				ID:   "BSI_EN_1991-1-1_Figure_6.1",
				Type: ObjectTypeFigure,
			},
			wantErr: nil,
		},
		{
			name:    "nil object",
			object:  nil,
			wantErr: ErrInvalidObject,
		},
		{
			name:    "empty id",
			object:  &Object{Type: ObjectTypeTable},
			wantErr: ErrEmptyID,
		},
		{
			name: "unknown type",
			object: &Object{
				ID:   "BSI_EN_1991-1-1_Chart_1",
				Type: "chart",
			},
			wantErr: ErrInvalidObjectType,
		},
		{
			name:    "missing type",
			object:  &Object{ID: "BSI_EN_1991-1-1_Table_6.2"},
			wantErr: ErrInvalidObjectType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateObject(tt.object)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateObject() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateObject() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name     string
		document *Document
		wantErr  error
	}{
		{
			name: "valid document",
			document: &Document{
				ID:        "BSI_EN_1991-1-1",
				Code:      "EN_1991-1-1",
				Name:      "Eurocode 1: Actions on structures",
				Pages:     44,
				Status:    "current",
				KeyPrefix: "BSI_EN_1991-1-1",
			},
			wantErr: nil,
		},
		{
			name:     "nil document",
			document: nil,
			wantErr:  ErrInvalidDocument,
		},
		{
			name:     "empty id",
			document: &Document{KeyPrefix: "BSI_EN_1990"},
			wantErr:  ErrEmptyID,
		},
		{
			name:     "empty key prefix",
			document: &Document{ID: "BSI_EN_1990"},
			wantErr:  ErrEmptyKeyPrefix,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.document)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
