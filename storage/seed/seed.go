// Package seed loads the demo registry: institutions, boarding points, students, drivers, vehicles and routes.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/campoalegre/unibus/core/registry"
)

var seededAt = time.Date(2025, time.February, 1, 8, 0, 0, 0, time.UTC)

var (
	Institutions = []registry.Institution{
		{ID: "inst-001", Name: "UFAL - Universidade Federal de Alagoas", City: "Maceió"},
		{ID: "inst-002", Name: "CESMAC - Centro Universitário", City: "Maceió"},
		{ID: "inst-003", Name: "Estácio Maceió", City: "Maceió"},
	}

	BoardingPoints = []registry.BoardingPoint{
		{ID: "bp-001", Name: "Praça Central", Address: "Praça Dom Pedro II, Centro", Reference: "Em frente à Prefeitura"},
		{ID: "bp-002", Name: "Terminal Rodoviário", Address: "Av. Siqueira Campos, s/n", Reference: "Entrada principal"},
		{ID: "bp-003", Name: "Bairro Novo - Escola", Address: "Rua das Flores, 120, Bairro Novo", Reference: "Ao lado da escola municipal"},
	}

	Vehicles = []registry.Vehicle{
		{ID: "veh-001", LicensePlate: "ABC-1234", Brand: "Marcopolo", Model: "OF-1721", Year: 2019, Capacity: 42, Type: registry.VehicleBus, Status: registry.StatusActive, CurrentKm: 87432},
		{ID: "veh-002", LicensePlate: "DEF-5678", Brand: "Volare", Model: "Unity", Year: 2021, Capacity: 28, Type: registry.VehicleMinibus, Status: registry.StatusActive, CurrentKm: 43210},
		{ID: "veh-003", LicensePlate: "GHI-9012", Brand: "Mercedes-Benz", Model: "Sprinter 415", Year: 2020, Capacity: 15, Type: registry.VehicleVan, Status: registry.StatusMaintenance, CurrentKm: 102890},
		{ID: "veh-004", LicensePlate: "JKL-3456", Brand: "Marcopolo", Model: "OF-1315", Year: 2018, Capacity: 35, Type: registry.VehicleBus, Status: registry.StatusActive, CurrentKm: 156780},
	}

	Drivers = []registry.Driver{
		{ID: "drv-001", Name: "José Ferreira da Silva", CPF: "12345678901", CNH: "CNH12345", CNHCategory: "D", Phone: "(82) 99876-5432", Status: registry.StatusActive},
		{ID: "drv-002", Name: "Antônio Carlos Pereira", CPF: "98765432100", CNH: "CNH98765", CNHCategory: "D", Phone: "(82) 98765-4321", Status: registry.StatusActive},
		{ID: "drv-003", Name: "Pedro Alves Nascimento", CPF: "11122233344", CNH: "CNH11122", CNHCategory: "E", Phone: "(82) 97654-3210", Status: registry.StatusActive},
	}

	Routes = []registry.Route{
		{ID: "route-001", Name: "Campo Alegre → UFAL (IDA)", Description: "Saída de Campo Alegre às 6h30", Direction: registry.DirectionGoing, DepartureTime: "06:30", BoardingPointIDs: []string{"bp-001", "bp-002", "bp-003"}},
		{ID: "route-002", Name: "UFAL → Campo Alegre (VOLTA)", Description: "Retorno saindo de Maceió às 18h00", Direction: registry.DirectionReturning, DepartureTime: "18:00", BoardingPointIDs: []string{"bp-002", "bp-001"}},
		{ID: "route-003", Name: "Campo Alegre → CESMAC (IDA)", Description: "Rota alternativa para CESMAC", Direction: registry.DirectionGoing, DepartureTime: "06:45", BoardingPointIDs: []string{"bp-001", "bp-003"}},
	}
)

var (
	studentNames = []string{
		"Ana Beatriz Ferreira", "Carlos Eduardo Lima", "Fernanda Souza", "Gabriel Alves", "Isadora Mendes",
		"João Pedro Nunes", "Larissa Costa", "Mateus Rodrigues", "Natália Pinto", "Otávio Barbosa",
		"Priscila Cavalcante", "Rafael Moreira", "Sabrina Vieira", "Thiago Santos", "Vanessa Carvalho",
		"Willian Oliveira", "Ximena Torres", "Yasmin Albuquerque", "Zeca Nascimento", "Amanda Freitas",
		"Bruno Monteiro", "Camila Lopes", "Diego Pereira", "Elisa Martins", "Felipe Corrêa",
		"Giovana Ribeiro", "Henrique Azevedo", "Iris Melo", "Júlia Cunha", "Leandro Barros",
		"Mariana Gomes", "Nicolas Teixeira",
	}
	courses = []string{"Medicina", "Engenharia Civil", "Direito", "Enfermagem", "Administração", "Pedagogia"}
)

// Students returns the demo students. Every seventh one is inactive, every third one has a biometric enrollment.
func Students() []registry.Student {
	students := make([]registry.Student, len(studentNames))
	for i, name := range studentNames {
		status := registry.StatusActive
		if i%7 == 0 {
			status = registry.StatusInactive
		}
		students[i] = registry.Student{
			ID:              fmt.Sprintf("student-%03d", i+1),
			Name:            name,
			CPF:             fmt.Sprintf("%03d456789%02d", i+1, i),
			Course:          courses[i%len(courses)],
			Phone:           fmt.Sprintf("(82) 9%04d-%04d", (i*1374+8000)%10000, (i*9281+1000)%10000),
			Status:          status,
			InstitutionID:   Institutions[i%len(Institutions)].ID,
			BoardingPointID: BoardingPoints[i%len(BoardingPoints)].ID,
			HasBiometric:    i%3 == 0,
		}
	}
	return students
}

// load creates every entity of items that is not stored yet.
func load[T registry.Entity](ctx context.Context, repo registry.Repository[T], items []T) (int, error) {
	n := 0
	for _, e := range items {
		if _, err := repo.Get(ctx, e.EntityID()); err == nil {
			continue
		}
		if _, err := repo.Create(ctx, e); err != nil {
			return n, errors.Wrapf(err, "seeding %s", e.EntityID())
		}
		n++
	}
	return n, nil
}

func stamp[T any](items []T, set func(*T)) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := range out {
		set(&out[i])
	}
	return out
}

// Load stores the demo registry. Entities already present are left alone, so Load can run on every start.
// It returns how many entities were created.
func Load(ctx context.Context, repos registry.Repositories) (int, error) {
	var total int
	steps := []func() (int, error){
		func() (int, error) {
			return load(ctx, repos.Institutions, stamp(Institutions, func(i *registry.Institution) {
				i.Status, i.CreatedAt, i.UpdatedAt = registry.StatusActive, seededAt, seededAt
			}))
		},
		func() (int, error) {
			return load(ctx, repos.BoardingPoints, stamp(BoardingPoints, func(bp *registry.BoardingPoint) {
				bp.Status, bp.CreatedAt, bp.UpdatedAt = registry.StatusActive, seededAt, seededAt
			}))
		},
		func() (int, error) {
			return load(ctx, repos.Students, stamp(Students(), func(s *registry.Student) {
				s.CreatedAt, s.UpdatedAt = seededAt, seededAt
			}))
		},
		func() (int, error) {
			return load(ctx, repos.Drivers, stamp(Drivers, func(d *registry.Driver) {
				d.CreatedAt, d.UpdatedAt = seededAt, seededAt
			}))
		},
		func() (int, error) {
			return load(ctx, repos.Vehicles, stamp(Vehicles, func(v *registry.Vehicle) {
				v.CreatedAt, v.UpdatedAt = seededAt, seededAt
			}))
		},
		func() (int, error) {
			return load(ctx, repos.Routes, stamp(Routes, func(r *registry.Route) {
				r.Status, r.CreatedAt, r.UpdatedAt = registry.StatusActive, seededAt, seededAt
				r.BoardingPointIDs = append([]string{}, r.BoardingPointIDs...)
			}))
		},
	}
	for _, step := range steps {
		n, err := step()
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
