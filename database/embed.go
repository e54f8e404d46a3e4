package database

import (
	"embed"
	"io/fs"
)

// migrationsEmbed, migration SQL dosyalarını binary'ye gömer.
// Deploy'da ayrıca migrations/ dizini taşımak gerekmez.
//
//go:embed migrations/*.sql
var migrationsEmbed embed.FS

// Migrations, migration dosyalarını kök dizinde sunan fs.FS döner.
// fs.Sub ile "migrations/" prefix'i soyulur — New() dosyaları "." altında arar.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationsEmbed, "migrations")
	if err != nil {
		// embed derleme zamanında garanti — buraya düşmesi programlama hatasıdır.
		panic(err)
	}
	return sub
}
