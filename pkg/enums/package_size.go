package enums

import "fmt"

// PackageSize is assigned by intake staff during classification.
type PackageSize string

const (
	PackageSizeSmall     PackageSize = "small"
	PackageSizeMedium    PackageSize = "medium"
	PackageSizeLarge     PackageSize = "large"
	PackageSizeOversized PackageSize = "oversized"
)

var validPackageSizes = []PackageSize{
	PackageSizeSmall,
	PackageSizeMedium,
	PackageSizeLarge,
	PackageSizeOversized,
}

func (p PackageSize) String() string {
	return string(p)
}

func (p PackageSize) IsValid() bool {
	for _, candidate := range validPackageSizes {
		if candidate == p {
			return true
		}
	}
	return false
}

func ParsePackageSize(value string) (PackageSize, error) {
	for _, candidate := range validPackageSizes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid package size %q", value)
}

// VehicleType is the vehicle a shipper drives.
type VehicleType string

const (
	VehicleTypeMotorbike VehicleType = "motorbike"
	VehicleTypeVan       VehicleType = "van"
	VehicleTypeTruck     VehicleType = "truck"
)

var validVehicleTypes = []VehicleType{
	VehicleTypeMotorbike,
	VehicleTypeVan,
	VehicleTypeTruck,
}

func (v VehicleType) String() string {
	return string(v)
}

func (v VehicleType) IsValid() bool {
	for _, candidate := range validVehicleTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

func ParseVehicleType(value string) (VehicleType, error) {
	for _, candidate := range validVehicleTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vehicle type %q", value)
}
