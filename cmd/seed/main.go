package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/storefront/commerce-backend/config"
	"github.com/storefront/commerce-backend/internal/app/repository"
	"github.com/storefront/commerce-backend/internal/app/service"
	"github.com/storefront/commerce-backend/internal/db"
	"github.com/storefront/commerce-backend/internal/export"
)

func main() {
	yes := flag.Bool("yes", false, "import without asking for confirmation")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: seed [-yes] <business_slug> <xlsx_file_path>")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}
	slug, filePath := flag.Arg(0), flag.Arg(1)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	gdb := db.GetDB()
	businessService := service.NewBusinessService(repository.NewBusinessRepository(gdb), repository.NewUserRepository(gdb), gdb)
	itemService := service.NewItemService(repository.NewItemRepository(gdb))

	business, err := businessService.ResolveSlug(slug)
	if err != nil {
		log.Fatalf("Failed to find business %q: %v", slug, err)
	}

	f, err := os.Open(filePath)
	if err != nil {
		log.Fatal("Failed to open XLSX:", err)
	}
	defer f.Close()

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	items, rowErrors, err := export.ReadItems(f, business.ID)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}
	for _, re := range rowErrors {
		fmt.Printf("  skipped %s\n", re.Error())
	}

	fmt.Printf("Items to import into %s (%s): %d\n", business.Name, business.Slug, len(items))
	if len(items) == 0 {
		return
	}

	if !*yes {
		fmt.Print("Do you want to proceed with the import? (yes/no): ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" && confirm != "y" {
			fmt.Println("Import cancelled.")
			return
		}
	}

	count, err := itemService.Import(business.ID, items)
	if err != nil {
		log.Fatal("Failed to import items:", err)
	}

	fmt.Printf("Imported %d items, skipped %d rows\n", count, len(rowErrors))
}
