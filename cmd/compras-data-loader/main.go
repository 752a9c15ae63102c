package main

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	_ "github.com/lib/pq"

	"compras/data"
)

func exitErr(err error) {
	fmt.Println(err)
	os.Exit(1)
}

func readCSV(name string, fields int) [][]string {
	f, err := data.FS.Open(name)
	if err != nil {
		exitErr(err)
	}

	defer f.Close()

	r := csv.NewReader(f)

	r.FieldsPerRecord = fields
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		exitErr(err)
	}

	return records
}

func main() {
	users := readCSV("users.csv", 1)
	products := readCSV("products.csv", 3)

	db, err := sql.Open("postgres", os.Getenv("POSTGRES_DSN"))
	if err != nil {
		exitErr(err)
	}

	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		exitErr(err)
	}

	for _, u := range users {
		_, err = tx.Exec(`
			insert into users(name) values ($1)
		`, strings.TrimSpace(u[0]))
		if err != nil {
			tx.Rollback()
			exitErr(err)
		}
	}

	for _, p := range products {
		price, err := strconv.ParseFloat(strings.TrimSpace(p[1]), 64)
		if err != nil {
			tx.Rollback()
			exitErr(err)
		}

		stock, err := strconv.Atoi(strings.TrimSpace(p[2]))
		if err != nil {
			tx.Rollback()
			exitErr(err)
		}

		_, err = tx.Exec(`
			insert into products(name, price, stock) values ($1, $2, $3)
		`, strings.TrimSpace(p[0]), price, stock)
		if err != nil {
			tx.Rollback()
			exitErr(err)
		}
	}

	err = tx.Commit()
	if err != nil {
		exitErr(err)
	}
}
