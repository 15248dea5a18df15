package enums

import (
	"fmt"
	"strings"
)

// ServiceType is the delivery speed tier priced by the fee calculator.
type ServiceType string

const (
	ServiceTypeExpress  ServiceType = "express"
	ServiceTypeStandard ServiceType = "standard"
	ServiceTypeEconomy  ServiceType = "economy"
)

var validServiceTypes = []ServiceType{
	ServiceTypeExpress,
	ServiceTypeStandard,
	ServiceTypeEconomy,
}

func (s ServiceType) String() string {
	return string(s)
}

func (s ServiceType) IsValid() bool {
	for _, candidate := range validServiceTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseServiceType(value string) (ServiceType, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validServiceTypes {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid service type %q", value)
}

// ServiceTypes lists every service tier.
func ServiceTypes() []ServiceType {
	out := make([]ServiceType, len(validServiceTypes))
	copy(out, validServiceTypes)
	return out
}
