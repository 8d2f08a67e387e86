package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"pointsmill/internal/config"
	"pointsmill/internal/database"
	"pointsmill/internal/repository"
	"pointsmill/internal/service"
)

func main() {
	// Define subcommands
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	allocateCmd := flag.NewFlagSet("allocate", flag.ExitOnError)

	// Export flags
	exportFamily := exportCmd.Int64("family", 0, "Family ID to export (required)")
	exportStart := exportCmd.String("start", "", "Range start, YYYY-MM-DD (default: 30 days ago)")
	exportEnd := exportCmd.String("end", "", "Range end, YYYY-MM-DD (default: now)")
	exportOutput := exportCmd.String("output", "", "Output file path (default: stdout)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations to ensure schema is up to date
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	familyRepo := repository.NewFamilyRepository(db)
	kidRepo := repository.NewKidRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	ledgerService := service.NewLedgerService(ledgerRepo, kidRepo, familyRepo)
	exportService := service.NewExportService(ledgerRepo)
	allocationService := service.NewAllocationService(familyRepo, kidRepo, ledgerService, cfg.AllocationHour)

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		if *exportFamily == 0 {
			fmt.Println("Error: -family flag is required")
			exportCmd.PrintDefaults()
			os.Exit(1)
		}
		handleExport(exportService, *exportFamily, *exportStart, *exportEnd, *exportOutput)

	case "allocate":
		allocateCmd.Parse(os.Args[2:])
		allocationService.RunOnce(time.Now())

	default:
		printUsage()
		os.Exit(1)
	}
}

func handleExport(exportService *service.ExportService, familyID int64, startStr, endStr, output string) {
	start := time.Now().AddDate(0, 0, -30)
	end := time.Now()

	var err error
	if startStr != "" {
		if start, err = time.Parse("2006-01-02", startStr); err != nil {
			log.Fatalf("Invalid -start value: %v", err)
		}
	}
	if endStr != "" {
		if end, err = time.Parse("2006-01-02", endStr); err != nil {
			log.Fatalf("Invalid -end value: %v", err)
		}
	}

	out := os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			log.Fatalf("Failed to create output file: %v", err)
		}
		defer f.Close()
		out = f
	}

	if err := exportService.WriteCSV(out, familyID, start, end); err != nil {
		log.Fatalf("Export failed: %v", err)
	}
	if output != "" {
		log.Printf("Exported to %s", output)
	}
}

func printUsage() {
	fmt.Println("Usage: export <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  export    Write a family's point log as CSV")
	fmt.Println("  allocate  Run the daily minute allocation once")
}
