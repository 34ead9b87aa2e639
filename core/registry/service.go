package registry

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/campoalegre/unibus/core"
	"github.com/campoalegre/unibus/core/audit"
)

var (
	// errors
	ErrInstitutionNotFound   = core.NewError(core.KindNotFound, "INSTITUTION_NOT_FOUND", "institution not found")
	ErrBoardingPointNotFound = core.NewError(core.KindNotFound, "BOARDING_POINT_NOT_FOUND", "boarding point not found")
	ErrStudentNotFound       = core.NewError(core.KindNotFound, "STUDENT_NOT_FOUND", "student not found")
	ErrDriverNotFound        = core.NewError(core.KindNotFound, "DRIVER_NOT_FOUND", "driver not found")
	ErrVehicleNotFound       = core.NewError(core.KindNotFound, "VEHICLE_NOT_FOUND", "vehicle not found")
	ErrRouteNotFound         = core.NewError(core.KindNotFound, "ROUTE_NOT_FOUND", "route not found")

	ErrCPFExists         = core.NewError(core.KindValidation, "CPF_EXISTS", "a person with this CPF already exists")
	ErrPlateExists       = core.NewError(core.KindValidation, "PLATE_EXISTS", "a vehicle with this license plate already exists")
	ErrReferenceInactive = core.NewError(core.KindValidation, "REFERENCE_INACTIVE", "referenced entity is not active")
)

type (
	// Repository stores one kind of Entity. Get returns the kind's NotFound error.
	Repository[T Entity] interface {
		Create(ctx context.Context, e T) (T, error)
		Get(ctx context.Context, id string) (T, error)
		// Query returns every stored entity in creation order.
		Query(ctx context.Context) ([]T, error)
		Update(ctx context.Context, e T) (T, error)
	}

	Repositories struct {
		Institutions   Repository[Institution]
		BoardingPoints Repository[BoardingPoint]
		Students       Repository[Student]
		Drivers        Repository[Driver]
		Vehicles       Repository[Vehicle]
		Routes         Repository[Route]
	}

	Service struct {
		repos   Repositories
		auditor audit.Recorder
		mu      sync.Mutex // serializes writes: uniqueness checks and read-modify-write updates
	}
)

func NewService(repos Repositories, auditor audit.Recorder) *Service {
	return &Service{repos: repos, auditor: auditor}
}

func now() time.Time { return nowFunc().UTC() }

func newID() string { return uuid.NewString() }

func fieldErr(err error, field string) error {
	return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
}

// Generic helpers

func query[T Entity](ctx context.Context, repo Repository[T], match func(T) bool, page core.Page) (core.Paginated[T], error) {
	all, err := repo.Query(ctx)
	if err != nil {
		return core.Paginated[T]{}, err
	}
	matched := make([]T, 0, len(all))
	for _, e := range all {
		if match == nil || match(e) {
			matched = append(matched, e)
		}
	}
	return core.Paginate(matched, page), nil
}

func matchFilter(qf QueryFilter, status string, fields ...string) bool {
	if qf.Status != "" && status != qf.Status {
		return false
	}
	if qf.Search == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), qf.Search) {
			return true
		}
	}
	return false
}

func (svc *Service) deactivated(ctx context.Context, entityType, id, prevStatus string) {
	svc.auditor.Record(ctx, audit.Event{
		Action:     audit.ActionEntityDeactivated,
		EntityType: entityType,
		EntityID:   id,
		Metadata:   audit.Metadata{"previous_status": prevStatus},
	})
}

func (svc *Service) updated(ctx context.Context, entityType, id string) {
	svc.auditor.Record(ctx, audit.Event{Action: audit.ActionEntityUpdated, EntityType: entityType, EntityID: id})
}

// checkCPF returns a field-level ValidationError when another student or driver already holds cpf.
func (svc *Service) checkCPF(ctx context.Context, cpf, excludeID string) error {
	students, err := svc.repos.Students.Query(ctx)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	for _, s := range students {
		if s.CPF == cpf && s.ID != excludeID {
			return fieldErr(ErrCPFExists, "cpf")
		}
	}
	drivers, err := svc.repos.Drivers.Query(ctx)
	if err != nil {
		return errors.Wrap(err, "querying drivers")
	}
	for _, d := range drivers {
		if d.CPF == cpf && d.ID != excludeID {
			return fieldErr(ErrCPFExists, "cpf")
		}
	}
	return nil
}

// Institutions

func (svc *Service) CreateInstitution(ctx context.Context, ni NewInstitution) (Institution, error) {
	t := now()
	inst, err := svc.repos.Institutions.Create(ctx, Institution{
		ID:        newID(),
		Name:      ni.Name,
		City:      ni.City,
		Status:    StatusActive,
		CreatedAt: t,
		UpdatedAt: t,
	})
	if err != nil {
		return Institution{}, errors.Wrap(err, "creating institution")
	}
	svc.auditor.Record(ctx, audit.Event{Action: audit.ActionEntityCreated, EntityType: audit.EntityInstitution, EntityID: inst.ID})
	return inst, nil
}

func (svc *Service) GetInstitution(ctx context.Context, id string) (Institution, error) {
	return svc.repos.Institutions.Get(ctx, id)
}

func (svc *Service) QueryInstitutions(ctx context.Context, qf QueryFilter, page core.Page) (core.Paginated[Institution], error) {
	qf.Clean()
	return query(ctx, svc.repos.Institutions, func(i Institution) bool {
		return matchFilter(qf, i.Status, i.Name, i.City)
	}, page)
}

func (svc *Service) UpdateInstitution(ctx context.Context, id string, ui UpdateInstitution) (Institution, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	inst, err := svc.repos.Institutions.Get(ctx, id)
	if err != nil {
		return Institution{}, err
	}
	if ui.Name != nil {
		inst.Name = *ui.Name
	}
	if ui.City != nil {
		inst.City = *ui.City
	}
	if ui.Status != nil {
		inst.Status = *ui.Status
	}
	inst.UpdatedAt = now()
	if inst, err = svc.repos.Institutions.Update(ctx, inst); err != nil {
		return Institution{}, errors.Wrap(err, "updating institution")
	}
	svc.updated(ctx, audit.EntityInstitution, id)
	return inst, nil
}

func (svc *Service) DeactivateInstitution(ctx context.Context, id string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	inst, err := svc.repos.Institutions.Get(ctx, id)
	if err != nil {
		return err
	}
	prev := inst.Status
	inst.Status = StatusInactive
	inst.UpdatedAt = now()
	if _, err = svc.repos.Institutions.Update(ctx, inst); err != nil {
		return errors.Wrap(err, "deactivating institution")
	}
	svc.deactivated(ctx, audit.EntityInstitution, id, prev)
	return nil
}

// Boarding points

func (svc *Service) CreateBoardingPoint(ctx context.Context, nb NewBoardingPoint) (BoardingPoint, error) {
	t := now()
	bp, err := svc.repos.BoardingPoints.Create(ctx, BoardingPoint{
		ID:        newID(),
		Name:      nb.Name,
		Address:   nb.Address,
		Reference: nb.Reference,
		Status:    StatusActive,
		CreatedAt: t,
		UpdatedAt: t,
	})
	if err != nil {
		return BoardingPoint{}, errors.Wrap(err, "creating boarding point")
	}
	svc.auditor.Record(ctx, audit.Event{Action: audit.ActionEntityCreated, EntityType: audit.EntityBoardingPoint, EntityID: bp.ID})
	return bp, nil
}

func (svc *Service) GetBoardingPoint(ctx context.Context, id string) (BoardingPoint, error) {
	return svc.repos.BoardingPoints.Get(ctx, id)
}

func (svc *Service) QueryBoardingPoints(ctx context.Context, qf QueryFilter, page core.Page) (core.Paginated[BoardingPoint], error) {
	qf.Clean()
	return query(ctx, svc.repos.BoardingPoints, func(bp BoardingPoint) bool {
		return matchFilter(qf, bp.Status, bp.Name, bp.Address)
	}, page)
}

func (svc *Service) UpdateBoardingPoint(ctx context.Context, id string, ub UpdateBoardingPoint) (BoardingPoint, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	bp, err := svc.repos.BoardingPoints.Get(ctx, id)
	if err != nil {
		return BoardingPoint{}, err
	}
	if ub.Name != nil {
		bp.Name = *ub.Name
	}
	if ub.Address != nil {
		bp.Address = *ub.Address
	}
	if ub.Reference != nil {
		bp.Reference = *ub.Reference
	}
	if ub.Status != nil {
		bp.Status = *ub.Status
	}
	bp.UpdatedAt = now()
	if bp, err = svc.repos.BoardingPoints.Update(ctx, bp); err != nil {
		return BoardingPoint{}, errors.Wrap(err, "updating boarding point")
	}
	svc.updated(ctx, audit.EntityBoardingPoint, id)
	return bp, nil
}

func (svc *Service) DeactivateBoardingPoint(ctx context.Context, id string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	bp, err := svc.repos.BoardingPoints.Get(ctx, id)
	if err != nil {
		return err
	}
	prev := bp.Status
	bp.Status = StatusInactive
	bp.UpdatedAt = now()
	if _, err = svc.repos.BoardingPoints.Update(ctx, bp); err != nil {
		return errors.Wrap(err, "deactivating boarding point")
	}
	svc.deactivated(ctx, audit.EntityBoardingPoint, id, prev)
	return nil
}

// Students

// checkStudentRefs makes sure the institution (and boarding point, when set) exist and are active.
func (svc *Service) checkStudentRefs(ctx context.Context, institutionID, boardingPointID string) error {
	inst, err := svc.repos.Institutions.Get(ctx, institutionID)
	if err != nil {
		if errors.Is(err, ErrInstitutionNotFound) {
			return fieldErr(ErrInstitutionNotFound, "institution_id")
		}
		return errors.Wrap(err, "getting institution")
	}
	if !inst.IsActive() {
		return fieldErr(ErrReferenceInactive, "institution_id")
	}
	if boardingPointID == "" {
		return nil
	}
	bp, err := svc.repos.BoardingPoints.Get(ctx, boardingPointID)
	if err != nil {
		if errors.Is(err, ErrBoardingPointNotFound) {
			return fieldErr(ErrBoardingPointNotFound, "boarding_point_id")
		}
		return errors.Wrap(err, "getting boarding point")
	}
	if !bp.IsActive() {
		return fieldErr(ErrReferenceInactive, "boarding_point_id")
	}
	return nil
}

func (svc *Service) CreateStudent(ctx context.Context, ns NewStudent) (Student, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	cpf := core.OnlyDigits(ns.CPF)
	if err := svc.checkCPF(ctx, cpf, ""); err != nil {
		return Student{}, err
	}
	if err := svc.checkStudentRefs(ctx, ns.InstitutionID, ns.BoardingPointID); err != nil {
		return Student{}, err
	}

	t := now()
	st, err := svc.repos.Students.Create(ctx, Student{
		ID:              newID(),
		Name:            ns.Name,
		CPF:             cpf,
		Email:           ns.Email,
		Phone:           ns.Phone,
		Course:          ns.Course,
		Status:          StatusActive,
		InstitutionID:   ns.InstitutionID,
		BoardingPointID: ns.BoardingPointID,
		CreatedAt:       t,
		UpdatedAt:       t,
	})
	if err != nil {
		return Student{}, errors.Wrap(err, "creating student")
	}
	svc.auditor.Record(ctx, audit.Event{
		Action:     audit.ActionStudentCreated,
		EntityType: audit.EntityStudent,
		EntityID:   st.ID,
		Metadata:   audit.Metadata{"name": st.Name, "institution_id": st.InstitutionID},
	})
	return st, nil
}

func (svc *Service) GetStudent(ctx context.Context, id string) (Student, error) {
	return svc.repos.Students.Get(ctx, id)
}

func (svc *Service) QueryStudents(ctx context.Context, sf StudentFilter, page core.Page) (core.Paginated[Student], error) {
	sf.Clean()
	return query(ctx, svc.repos.Students, func(s Student) bool {
		if sf.InstitutionID != "" && s.InstitutionID != sf.InstitutionID {
			return false
		}
		return matchFilter(sf.QueryFilter, s.Status, s.Name, s.CPF, s.Email)
	}, page)
}

func (svc *Service) UpdateStudent(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	st, err := svc.repos.Students.Get(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if us.CPF != nil {
		cpf := core.OnlyDigits(*us.CPF)
		if err := svc.checkCPF(ctx, cpf, id); err != nil {
			return Student{}, err
		}
		st.CPF = cpf
	}
	if us.InstitutionID != nil || us.BoardingPointID != nil {
		instID, bpID := st.InstitutionID, st.BoardingPointID
		if us.InstitutionID != nil {
			instID = *us.InstitutionID
		}
		if us.BoardingPointID != nil {
			bpID = *us.BoardingPointID
		}
		if err := svc.checkStudentRefs(ctx, instID, bpID); err != nil {
			return Student{}, err
		}
		st.InstitutionID, st.BoardingPointID = instID, bpID
	}
	if us.Name != nil {
		st.Name = *us.Name
	}
	if us.Email != nil {
		st.Email = *us.Email
	}
	if us.Phone != nil {
		st.Phone = *us.Phone
	}
	if us.Course != nil {
		st.Course = *us.Course
	}
	if us.Status != nil {
		st.Status = *us.Status
	}
	st.UpdatedAt = now()
	if st, err = svc.repos.Students.Update(ctx, st); err != nil {
		return Student{}, errors.Wrap(err, "updating student")
	}
	svc.updated(ctx, audit.EntityStudent, id)
	return st, nil
}

func (svc *Service) DeactivateStudent(ctx context.Context, id string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	st, err := svc.repos.Students.Get(ctx, id)
	if err != nil {
		return err
	}
	prev := st.Status
	st.Status = StatusInactive
	st.UpdatedAt = now()
	if _, err = svc.repos.Students.Update(ctx, st); err != nil {
		return errors.Wrap(err, "deactivating student")
	}
	svc.deactivated(ctx, audit.EntityStudent, id, prev)
	return nil
}

// SetBiometricEnrollment flags whether the student has a reference face enrolled.
func (svc *Service) SetBiometricEnrollment(ctx context.Context, id string, enrolled bool) (Student, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	st, err := svc.repos.Students.Get(ctx, id)
	if err != nil {
		return Student{}, err
	}
	st.HasBiometric = enrolled
	st.UpdatedAt = now()
	if st, err = svc.repos.Students.Update(ctx, st); err != nil {
		return Student{}, errors.Wrap(err, "updating biometric enrollment")
	}

	action := audit.ActionBiometricEnrolled
	if !enrolled {
		action = audit.ActionBiometricRemoved
	}
	svc.auditor.Record(ctx, audit.Event{Action: action, EntityType: audit.EntityStudent, EntityID: id})
	return st, nil
}

// Drivers

func (svc *Service) CreateDriver(ctx context.Context, nd NewDriver) (Driver, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	cpf := core.OnlyDigits(nd.CPF)
	if err := svc.checkCPF(ctx, cpf, ""); err != nil {
		return Driver{}, err
	}

	t := now()
	drv, err := svc.repos.Drivers.Create(ctx, Driver{
		ID:          newID(),
		Name:        nd.Name,
		CPF:         cpf,
		CNH:         nd.CNH,
		CNHCategory: nd.CNHCategory,
		Phone:       nd.Phone,
		Email:       nd.Email,
		Status:      StatusActive,
		CreatedAt:   t,
		UpdatedAt:   t,
	})
	if err != nil {
		return Driver{}, errors.Wrap(err, "creating driver")
	}
	svc.auditor.Record(ctx, audit.Event{Action: audit.ActionEntityCreated, EntityType: audit.EntityDriver, EntityID: drv.ID})
	return drv, nil
}

func (svc *Service) GetDriver(ctx context.Context, id string) (Driver, error) {
	return svc.repos.Drivers.Get(ctx, id)
}

func (svc *Service) QueryDrivers(ctx context.Context, qf QueryFilter, page core.Page) (core.Paginated[Driver], error) {
	qf.Clean()
	return query(ctx, svc.repos.Drivers, func(d Driver) bool {
		return matchFilter(qf, d.Status, d.Name, d.CPF, d.CNH)
	}, page)
}

func (svc *Service) UpdateDriver(ctx context.Context, id string, ud UpdateDriver) (Driver, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	drv, err := svc.repos.Drivers.Get(ctx, id)
	if err != nil {
		return Driver{}, err
	}
	if ud.CPF != nil {
		cpf := core.OnlyDigits(*ud.CPF)
		if err := svc.checkCPF(ctx, cpf, id); err != nil {
			return Driver{}, err
		}
		drv.CPF = cpf
	}
	if ud.Name != nil {
		drv.Name = *ud.Name
	}
	if ud.CNH != nil {
		drv.CNH = *ud.CNH
	}
	if ud.CNHCategory != nil {
		drv.CNHCategory = *ud.CNHCategory
	}
	if ud.Phone != nil {
		drv.Phone = *ud.Phone
	}
	if ud.Email != nil {
		drv.Email = *ud.Email
	}
	if ud.Status != nil {
		drv.Status = *ud.Status
	}
	drv.UpdatedAt = now()
	if drv, err = svc.repos.Drivers.Update(ctx, drv); err != nil {
		return Driver{}, errors.Wrap(err, "updating driver")
	}
	svc.updated(ctx, audit.EntityDriver, id)
	return drv, nil
}

func (svc *Service) DeactivateDriver(ctx context.Context, id string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	drv, err := svc.repos.Drivers.Get(ctx, id)
	if err != nil {
		return err
	}
	prev := drv.Status
	drv.Status = StatusInactive
	drv.UpdatedAt = now()
	if _, err = svc.repos.Drivers.Update(ctx, drv); err != nil {
		return errors.Wrap(err, "deactivating driver")
	}
	svc.deactivated(ctx, audit.EntityDriver, id, prev)
	return nil
}

// Vehicles

func (svc *Service) checkPlate(ctx context.Context, plate, excludeID string) error {
	vehicles, err := svc.repos.Vehicles.Query(ctx)
	if err != nil {
		return errors.Wrap(err, "querying vehicles")
	}
	norm := strings.ReplaceAll(plate, "-", "")
	for _, v := range vehicles {
		if strings.ReplaceAll(v.LicensePlate, "-", "") == norm && v.ID != excludeID {
			return fieldErr(ErrPlateExists, "license_plate")
		}
	}
	return nil
}

func (svc *Service) CreateVehicle(ctx context.Context, nv NewVehicle) (Vehicle, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if err := svc.checkPlate(ctx, nv.LicensePlate, ""); err != nil {
		return Vehicle{}, err
	}

	t := now()
	veh, err := svc.repos.Vehicles.Create(ctx, Vehicle{
		ID:           newID(),
		LicensePlate: nv.LicensePlate,
		Brand:        nv.Brand,
		Model:        nv.Model,
		Year:         nv.Year,
		Capacity:     nv.Capacity,
		Type:         nv.Type,
		Status:       StatusActive,
		CurrentKm:    nv.CurrentKm,
		CreatedAt:    t,
		UpdatedAt:    t,
	})
	if err != nil {
		return Vehicle{}, errors.Wrap(err, "creating vehicle")
	}
	svc.auditor.Record(ctx, audit.Event{Action: audit.ActionEntityCreated, EntityType: audit.EntityVehicle, EntityID: veh.ID})
	return veh, nil
}

func (svc *Service) GetVehicle(ctx context.Context, id string) (Vehicle, error) {
	return svc.repos.Vehicles.Get(ctx, id)
}

func (svc *Service) QueryVehicles(ctx context.Context, qf QueryFilter, page core.Page) (core.Paginated[Vehicle], error) {
	qf.Clean()
	return query(ctx, svc.repos.Vehicles, func(v Vehicle) bool {
		return matchFilter(qf, v.Status, v.LicensePlate, v.Brand, v.Model)
	}, page)
}

// Vehicles returns every vehicle, whatever its status.
func (svc *Service) Vehicles(ctx context.Context) ([]Vehicle, error) {
	return svc.repos.Vehicles.Query(ctx)
}

func (svc *Service) UpdateVehicle(ctx context.Context, id string, uv UpdateVehicle) (Vehicle, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	veh, err := svc.repos.Vehicles.Get(ctx, id)
	if err != nil {
		return Vehicle{}, err
	}
	if uv.LicensePlate != nil {
		if err := svc.checkPlate(ctx, *uv.LicensePlate, id); err != nil {
			return Vehicle{}, err
		}
		veh.LicensePlate = *uv.LicensePlate
	}
	if uv.Brand != nil {
		veh.Brand = *uv.Brand
	}
	if uv.Model != nil {
		veh.Model = *uv.Model
	}
	if uv.Year != nil {
		veh.Year = *uv.Year
	}
	if uv.Capacity != nil {
		veh.Capacity = *uv.Capacity
	}
	if uv.Type != nil {
		veh.Type = *uv.Type
	}
	if uv.CurrentKm != nil {
		veh.CurrentKm = *uv.CurrentKm
	}
	prevStatus := veh.Status
	if uv.Status != nil {
		veh.Status = *uv.Status
	}
	veh.UpdatedAt = now()
	if veh, err = svc.repos.Vehicles.Update(ctx, veh); err != nil {
		return Vehicle{}, errors.Wrap(err, "updating vehicle")
	}

	if veh.Status != prevStatus {
		svc.auditor.Record(ctx, audit.Event{
			Action:     audit.ActionVehicleStatusChanged,
			EntityType: audit.EntityVehicle,
			EntityID:   id,
			Metadata:   audit.Metadata{"from": prevStatus, "to": veh.Status},
		})
	} else {
		svc.updated(ctx, audit.EntityVehicle, id)
	}
	return veh, nil
}

func (svc *Service) DeactivateVehicle(ctx context.Context, id string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	veh, err := svc.repos.Vehicles.Get(ctx, id)
	if err != nil {
		return err
	}
	prev := veh.Status
	veh.Status = StatusInactive
	veh.UpdatedAt = now()
	if _, err = svc.repos.Vehicles.Update(ctx, veh); err != nil {
		return errors.Wrap(err, "deactivating vehicle")
	}
	svc.deactivated(ctx, audit.EntityVehicle, id, prev)
	return nil
}

// RecordOdometer advances the vehicle's CurrentKm to km. Lower readings are ignored.
func (svc *Service) RecordOdometer(ctx context.Context, id string, km int) (Vehicle, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	veh, err := svc.repos.Vehicles.Get(ctx, id)
	if err != nil {
		return Vehicle{}, err
	}
	if km <= veh.CurrentKm {
		return veh, nil
	}
	veh.CurrentKm = km
	veh.UpdatedAt = now()
	return svc.repos.Vehicles.Update(ctx, veh)
}

// Routes

func (svc *Service) checkBoardingPoints(ctx context.Context, ids []string) error {
	for _, id := range ids {
		bp, err := svc.repos.BoardingPoints.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrBoardingPointNotFound) {
				return fieldErr(ErrBoardingPointNotFound, "boarding_point_ids")
			}
			return errors.Wrap(err, "getting boarding point")
		}
		if !bp.IsActive() {
			return fieldErr(ErrReferenceInactive, "boarding_point_ids")
		}
	}
	return nil
}

func (svc *Service) CreateRoute(ctx context.Context, nr NewRoute) (Route, error) {
	if err := svc.checkBoardingPoints(ctx, nr.BoardingPointIDs); err != nil {
		return Route{}, err
	}

	bpIDs := nr.BoardingPointIDs
	if bpIDs == nil {
		bpIDs = []string{}
	}
	t := now()
	rt, err := svc.repos.Routes.Create(ctx, Route{
		ID:               newID(),
		Name:             nr.Name,
		Description:      nr.Description,
		Direction:        nr.Direction,
		DepartureTime:    nr.DepartureTime,
		BoardingPointIDs: bpIDs,
		Status:           StatusActive,
		CreatedAt:        t,
		UpdatedAt:        t,
	})
	if err != nil {
		return Route{}, errors.Wrap(err, "creating route")
	}
	svc.auditor.Record(ctx, audit.Event{Action: audit.ActionEntityCreated, EntityType: audit.EntityRoute, EntityID: rt.ID})
	return rt, nil
}

func (svc *Service) GetRoute(ctx context.Context, id string) (Route, error) {
	return svc.repos.Routes.Get(ctx, id)
}

func (svc *Service) QueryRoutes(ctx context.Context, qf QueryFilter, page core.Page) (core.Paginated[Route], error) {
	qf.Clean()
	return query(ctx, svc.repos.Routes, func(r Route) bool {
		return matchFilter(qf, r.Status, r.Name, r.Description)
	}, page)
}

func (svc *Service) UpdateRoute(ctx context.Context, id string, ur UpdateRoute) (Route, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	rt, err := svc.repos.Routes.Get(ctx, id)
	if err != nil {
		return Route{}, err
	}
	if ur.BoardingPointIDs != nil {
		if err := svc.checkBoardingPoints(ctx, ur.BoardingPointIDs); err != nil {
			return Route{}, err
		}
		rt.BoardingPointIDs = ur.BoardingPointIDs
	}
	if ur.Name != nil {
		rt.Name = *ur.Name
	}
	if ur.Description != nil {
		rt.Description = *ur.Description
	}
	if ur.Direction != nil {
		rt.Direction = *ur.Direction
	}
	if ur.DepartureTime != nil {
		rt.DepartureTime = *ur.DepartureTime
	}
	if ur.Status != nil {
		rt.Status = *ur.Status
	}
	rt.UpdatedAt = now()
	if rt, err = svc.repos.Routes.Update(ctx, rt); err != nil {
		return Route{}, errors.Wrap(err, "updating route")
	}
	svc.updated(ctx, audit.EntityRoute, id)
	return rt, nil
}

func (svc *Service) DeactivateRoute(ctx context.Context, id string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	rt, err := svc.repos.Routes.Get(ctx, id)
	if err != nil {
		return err
	}
	prev := rt.Status
	rt.Status = StatusInactive
	rt.UpdatedAt = now()
	if _, err = svc.repos.Routes.Update(ctx, rt); err != nil {
		return errors.Wrap(err, "deactivating route")
	}
	svc.deactivated(ctx, audit.EntityRoute, id, prev)
	return nil
}
