package registry

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/campoalegre/unibus/core"
)

// Statuses
const (
	StatusActive      = "active"
	StatusInactive    = "inactive"
	StatusSuspended   = "suspended"   // students
	StatusMaintenance = "maintenance" // vehicles
	StatusVacation    = "vacation"    // drivers
)

// Vehicle types
const (
	VehicleBus     = "bus"
	VehicleMinibus = "minibus"
	VehicleVan     = "van"
)

// Route directions
const (
	DirectionGoing     = "going"
	DirectionReturning = "returning"
)

// Deactivatable is shared by every reference entity. Deleting one only flips its status,
// so trips that reference it keep resolving.
type Deactivatable interface {
	IsActive() bool
}

// Entity is anything stored in the registry.
type Entity interface {
	Deactivatable
	EntityID() string
}

type Institution struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	City      string    `json:"city"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (i Institution) EntityID() string { return i.ID }
func (i Institution) IsActive() bool   { return i.Status == StatusActive }

type BoardingPoint struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Reference string    `json:"reference,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (bp BoardingPoint) EntityID() string { return bp.ID }
func (bp BoardingPoint) IsActive() bool   { return bp.Status == StatusActive }

type Student struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	CPF             string    `json:"cpf"` // 11 digits
	Email           string    `json:"email,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	Course          string    `json:"course,omitempty"`
	Status          string    `json:"status"`
	InstitutionID   string    `json:"institution_id"`
	BoardingPointID string    `json:"boarding_point_id,omitempty"`
	HasBiometric    bool      `json:"has_biometric"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

func (s Student) EntityID() string { return s.ID }
func (s Student) IsActive() bool   { return s.Status == StatusActive }

type Driver struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CPF         string    `json:"cpf"`
	CNH         string    `json:"cnh"`
	CNHCategory string    `json:"cnh_category"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

func (d Driver) EntityID() string { return d.ID }
func (d Driver) IsActive() bool   { return d.Status == StatusActive }

type Vehicle struct {
	ID           string    `json:"id"`
	LicensePlate string    `json:"license_plate"`
	Brand        string    `json:"brand"`
	Model        string    `json:"model"`
	Year         int       `json:"year"`
	Capacity     int       `json:"capacity"`
	Type         string    `json:"type"`
	Status       string    `json:"status"`
	CurrentKm    int       `json:"current_km"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (v Vehicle) EntityID() string { return v.ID }
func (v Vehicle) IsActive() bool   { return v.Status == StatusActive }

type Route struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	Direction        string    `json:"direction"`
	DepartureTime    string    `json:"departure_time"` // HH:MM
	BoardingPointIDs []string  `json:"boarding_point_ids"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"` // UTC
	UpdatedAt        time.Time `json:"updated_at"` // UTC
}

func (r Route) EntityID() string { return r.ID }
func (r Route) IsActive() bool   { return r.Status == StatusActive }

// Inputs

type NewInstitution struct {
	Name string `json:"name" validate:"required,notblank,min=2"`
	City string `json:"city" validate:"required,notblank"`
}

func (ni *NewInstitution) Validate(validate *validator.Validate) error {
	ni.Name = core.CleanString(ni.Name)
	ni.City = core.CleanString(ni.City)
	return validate.Struct(ni)
}

type UpdateInstitution struct {
	Name   *string `json:"name" validate:"omitempty,notblank,min=2"`
	City   *string `json:"city" validate:"omitempty,notblank"`
	Status *string `json:"status" validate:"omitempty,oneof=active inactive"`
}

func (ui *UpdateInstitution) Validate(validate *validator.Validate) error {
	cleanPtr(ui.Name)
	cleanPtr(ui.City)
	return validate.Struct(ui)
}

type NewBoardingPoint struct {
	Name      string `json:"name" validate:"required,notblank,min=2"`
	Address   string `json:"address" validate:"required,notblank"`
	Reference string `json:"reference"`
}

func (nb *NewBoardingPoint) Validate(validate *validator.Validate) error {
	nb.Name = core.CleanString(nb.Name)
	nb.Address = core.CleanString(nb.Address)
	nb.Reference = core.CleanString(nb.Reference)
	return validate.Struct(nb)
}

type UpdateBoardingPoint struct {
	Name      *string `json:"name" validate:"omitempty,notblank,min=2"`
	Address   *string `json:"address" validate:"omitempty,notblank"`
	Reference *string `json:"reference"`
	Status    *string `json:"status" validate:"omitempty,oneof=active inactive"`
}

func (ub *UpdateBoardingPoint) Validate(validate *validator.Validate) error {
	cleanPtr(ub.Name)
	cleanPtr(ub.Address)
	cleanPtr(ub.Reference)
	return validate.Struct(ub)
}

type NewStudent struct {
	Name            string `json:"name" validate:"required,notblank,min=3"`
	CPF             string `json:"cpf" validate:"required,cpf"`
	Email           string `json:"email" validate:"omitempty,email"`
	Phone           string `json:"phone" validate:"omitempty,min=10"`
	Course          string `json:"course"`
	InstitutionID   string `json:"institution_id" validate:"required"`
	BoardingPointID string `json:"boarding_point_id"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.CPF = core.CleanString(ns.CPF)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Phone = core.CleanString(ns.Phone)
	ns.Course = core.CleanString(ns.Course)
	ns.InstitutionID = core.CleanString(ns.InstitutionID)
	ns.BoardingPointID = core.CleanString(ns.BoardingPointID)
	return validate.Struct(ns)
}

type UpdateStudent struct {
	Name            *string `json:"name" validate:"omitempty,notblank,min=3"`
	CPF             *string `json:"cpf" validate:"omitempty,cpf"`
	Email           *string `json:"email" validate:"omitempty,email"`
	Phone           *string `json:"phone" validate:"omitempty,min=10"`
	Course          *string `json:"course"`
	Status          *string `json:"status" validate:"omitempty,oneof=active inactive suspended"`
	InstitutionID   *string `json:"institution_id" validate:"omitempty,notblank"`
	BoardingPointID *string `json:"boarding_point_id"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	cleanPtr(us.Name)
	cleanPtr(us.CPF)
	cleanPtr(us.Email, true /* lower */)
	cleanPtr(us.Phone)
	cleanPtr(us.Course)
	cleanPtr(us.InstitutionID)
	cleanPtr(us.BoardingPointID)
	return validate.Struct(us)
}

type NewDriver struct {
	Name        string `json:"name" validate:"required,notblank,min=3"`
	CPF         string `json:"cpf" validate:"required,cpf"`
	CNH         string `json:"cnh" validate:"required,min=5"`
	CNHCategory string `json:"cnh_category" validate:"required,oneof=D E"`
	Phone       string `json:"phone" validate:"omitempty,min=10"`
	Email       string `json:"email" validate:"omitempty,email"`
}

func (nd *NewDriver) Validate(validate *validator.Validate) error {
	nd.Name = core.CleanString(nd.Name)
	nd.CPF = core.CleanString(nd.CPF)
	nd.CNH = core.CleanString(nd.CNH)
	nd.CNHCategory = strings.ToUpper(core.CleanString(nd.CNHCategory))
	nd.Phone = core.CleanString(nd.Phone)
	nd.Email = core.CleanString(nd.Email, true /* lower */)
	return validate.Struct(nd)
}

type UpdateDriver struct {
	Name        *string `json:"name" validate:"omitempty,notblank,min=3"`
	CPF         *string `json:"cpf" validate:"omitempty,cpf"`
	CNH         *string `json:"cnh" validate:"omitempty,min=5"`
	CNHCategory *string `json:"cnh_category" validate:"omitempty,oneof=D E"`
	Phone       *string `json:"phone" validate:"omitempty,min=10"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Status      *string `json:"status" validate:"omitempty,oneof=active inactive vacation"`
}

func (ud *UpdateDriver) Validate(validate *validator.Validate) error {
	cleanPtr(ud.Name)
	cleanPtr(ud.CPF)
	cleanPtr(ud.CNH)
	if ud.CNHCategory != nil {
		*ud.CNHCategory = strings.ToUpper(core.CleanString(*ud.CNHCategory))
	}
	cleanPtr(ud.Phone)
	cleanPtr(ud.Email, true /* lower */)
	return validate.Struct(ud)
}

type NewVehicle struct {
	LicensePlate string `json:"license_plate" validate:"required,plate"`
	Brand        string `json:"brand" validate:"required,notblank"`
	Model        string `json:"model" validate:"required,notblank"`
	Year         int    `json:"year" validate:"required"`
	Capacity     int    `json:"capacity" validate:"required,min=1"`
	Type         string `json:"type" validate:"required,oneof=bus minibus van"`
	CurrentKm    int    `json:"current_km" validate:"min=0"`
}

func (nv *NewVehicle) Validate(validate *validator.Validate) error {
	nv.LicensePlate = strings.ToUpper(core.CleanString(nv.LicensePlate))
	nv.Brand = core.CleanString(nv.Brand)
	nv.Model = core.CleanString(nv.Model)
	nv.Type = core.CleanString(nv.Type, true /* lower */)
	if err := validate.Struct(nv); err != nil {
		return err
	}
	return validateYear(nv.Year)
}

type UpdateVehicle struct {
	LicensePlate *string `json:"license_plate" validate:"omitempty,plate"`
	Brand        *string `json:"brand" validate:"omitempty,notblank"`
	Model        *string `json:"model" validate:"omitempty,notblank"`
	Year         *int    `json:"year"`
	Capacity     *int    `json:"capacity" validate:"omitempty,min=1"`
	Type         *string `json:"type" validate:"omitempty,oneof=bus minibus van"`
	Status       *string `json:"status" validate:"omitempty,oneof=active maintenance inactive"`
	CurrentKm    *int    `json:"current_km" validate:"omitempty,min=0"`
}

func (uv *UpdateVehicle) Validate(validate *validator.Validate) error {
	if uv.LicensePlate != nil {
		*uv.LicensePlate = strings.ToUpper(core.CleanString(*uv.LicensePlate))
	}
	cleanPtr(uv.Brand)
	cleanPtr(uv.Model)
	cleanPtr(uv.Type, true /* lower */)
	if err := validate.Struct(uv); err != nil {
		return err
	}
	if uv.Year != nil {
		return validateYear(*uv.Year)
	}
	return nil
}

type NewRoute struct {
	Name             string   `json:"name" validate:"required,notblank,min=3"`
	Description      string   `json:"description"`
	Direction        string   `json:"direction" validate:"required,oneof=going returning"`
	DepartureTime    string   `json:"departure_time" validate:"required,hhmm"`
	BoardingPointIDs []string `json:"boarding_point_ids" validate:"dive,required"`
}

func (nr *NewRoute) Validate(validate *validator.Validate) error {
	nr.Name = core.CleanString(nr.Name)
	nr.Description = core.CleanString(nr.Description)
	nr.Direction = core.CleanString(nr.Direction, true /* lower */)
	nr.DepartureTime = core.CleanString(nr.DepartureTime)
	return validate.Struct(nr)
}

type UpdateRoute struct {
	Name             *string  `json:"name" validate:"omitempty,notblank,min=3"`
	Description      *string  `json:"description"`
	Direction        *string  `json:"direction" validate:"omitempty,oneof=going returning"`
	DepartureTime    *string  `json:"departure_time" validate:"omitempty,hhmm"`
	BoardingPointIDs []string `json:"boarding_point_ids" validate:"omitempty,dive,required"`
	Status           *string  `json:"status" validate:"omitempty,oneof=active inactive"`
}

func (ur *UpdateRoute) Validate(validate *validator.Validate) error {
	cleanPtr(ur.Name)
	cleanPtr(ur.Description)
	cleanPtr(ur.Direction, true /* lower */)
	cleanPtr(ur.DepartureTime)
	return validate.Struct(ur)
}

// Filters

type QueryFilter struct {
	Search string `query:"q"` // case-insensitive match on name (and CPF/plate where relevant)
	Status string `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search, true /* lower */)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}

type StudentFilter struct {
	QueryFilter
	InstitutionID string `query:"institution_id"`
}

func (sf *StudentFilter) Clean() {
	sf.QueryFilter.Clean()
	sf.InstitutionID = core.CleanString(sf.InstitutionID)
}

func cleanPtr(s *string, lower ...bool) {
	if s != nil {
		*s = core.CleanString(*s, lower...)
	}
}
