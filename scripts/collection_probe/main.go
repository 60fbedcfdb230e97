package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/schedule-browser/internal/models"
	"github.com/noah-isme/schedule-browser/internal/query"
	"github.com/noah-isme/schedule-browser/internal/repository"
	"github.com/noah-isme/schedule-browser/internal/service"
	"github.com/noah-isme/schedule-browser/pkg/clock"
	"github.com/noah-isme/schedule-browser/pkg/config"
	appErrors "github.com/noah-isme/schedule-browser/pkg/errors"
)

type target struct {
	Collection   string `yaml:"collection"`
	Search       string `yaml:"search"`
	Weekdays     []int  `yaml:"weekdays"`
	Session      string `yaml:"session"`
	TeacherID    int64  `yaml:"teacher_id"`
	ClassID      int64  `yaml:"class_id"`
	Grade        int    `yaml:"grade"`
	AcademicYear string `yaml:"academic_year"`
	SortBy       string `yaml:"sort_by"`
	SortOrder    string `yaml:"sort_order"`
	Page         int    `yaml:"page"`
	PerPage      int    `yaml:"per_page"`
	Critical     bool   `yaml:"critical"`
}

type targetsFile struct {
	Targets []target `yaml:"targets"`
}

func (t target) filters() models.ScheduleFilters {
	return models.ScheduleFilters{
		ClassID:      t.ClassID,
		Grade:        t.Grade,
		TeacherID:    t.TeacherID,
		Session:      t.Session,
		AcademicYear: t.AcademicYear,
		Weekdays:     t.Weekdays,
		SortBy:       t.SortBy,
		SortOrder:    t.SortOrder,
	}
}

type result struct {
	Target   target
	Query    string
	Items    int
	Page     models.Pagination
	Err      error
	Duration time.Duration
}

func main() {
	var (
		targetsPath string
		baseURL     string
	)

	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "collection_probe", "targets.yaml"), "Path to YAML targets file")
	flag.StringVar(&baseURL, "base", "", "Override API_BASE_URL")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if baseURL != "" {
		cfg.API.BaseURL = baseURL
	}

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	credentials := service.NewCredentialService(cfg.Auth, clock.Real(), zap.NewNop())
	client := repository.NewCollectionClient(cfg.API, nil, credentials, nil, zap.NewNop())

	var (
		results  []result
		breaking int
		optional int
	)
	for _, t := range targets {
		res := probe(context.Background(), client, t)
		if res.Err != nil {
			if t.Critical {
				breaking++
			} else {
				optional++
			}
		}
		results = append(results, res)
	}

	printReport(cfg.API.BaseURL+cfg.API.Prefix, results)

	fmt.Printf("Critical failures: %d, Optional failures: %d\n", breaking, optional)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file targetsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return file.Targets, nil
}

func probe(ctx context.Context, client *repository.CollectionClient, t target) result {
	page, perPage := t.Page, t.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = service.DefaultPerPage
	}

	res := result{Target: t}
	start := time.Now()
	switch t.Collection {
	case repository.CollectionSchedules.Name:
		q := query.Build(t.filters())
		res.Query = q.WithPage(page, perPage).Encode()
		var p *models.Page[models.ScheduleRow]
		p, res.Err = repository.NewScheduleRepository(client).List(ctx, q, page, perPage)
		if p != nil {
			res.Items, res.Page = len(p.Items), p.Pagination
		}
	case repository.CollectionTeachers.Name:
		res.Query = query.Reference(t.Search).WithPage(page, perPage).Encode()
		var p *models.Page[models.Teacher]
		p, res.Err = repository.NewTeacherRepository(client).Search(ctx, t.Search, page, perPage)
		if p != nil {
			res.Items, res.Page = len(p.Items), p.Pagination
		}
	case repository.CollectionClasses.Name:
		search := models.ClassSearch{Search: t.Search, Grade: t.Grade, AcademicYear: t.AcademicYear}
		res.Query = query.ClassSearch(search).WithPage(page, perPage).Encode()
		var p *models.Page[models.Class]
		p, res.Err = repository.NewClassRepository(client).Search(ctx, search, page, perPage)
		if p != nil {
			res.Items, res.Page = len(p.Items), p.Pagination
		}
	case repository.CollectionSubjects.Name:
		res.Query = query.Reference(t.Search).WithPage(page, perPage).Encode()
		var p *models.Page[models.Subject]
		p, res.Err = repository.NewSubjectRepository(client).Search(ctx, t.Search, page, perPage)
		if p != nil {
			res.Items, res.Page = len(p.Items), p.Pagination
		}
	default:
		res.Err = fmt.Errorf("unknown collection %q", t.Collection)
	}
	res.Duration = time.Since(start)
	return res
}

func printReport(base string, results []result) {
	fmt.Println("Collection Probe Report")
	fmt.Println("=======================")
	fmt.Printf("Upstream: %s\n", base)
	for _, res := range results {
		status := "OK"
		if res.Err != nil {
			status = "ERROR"
		}
		fmt.Printf("[%s] %s ?%s (%s)\n", status, res.Target.Collection, res.Query, res.Duration)
		if res.Err != nil {
			appErr := appErrors.FromError(res.Err)
			fmt.Printf("  Reason: %s | Message: %s | Critical: %t\n", appErrors.ReasonOf(res.Err), appErr.Message, res.Target.Critical)
			for field, messages := range appErr.Fields {
				fmt.Printf("    %s: %v\n", field, messages)
			}
			continue
		}
		fmt.Printf("  Items: %d | Page %d/%d | Total: %d\n", res.Items, res.Page.CurrentPage, res.Page.TotalPages, res.Page.Total)
	}
}
