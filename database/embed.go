// Package database embed dosyası — migration SQL dosyalarını binary'ye gömer.
//
// Go'nun embed paketi, derleme zamanında dosyaları binary'nin içine gömer.
// Bu sayede deploy edilen binary yanında migration dosyalarına ihtiyaç duymaz.
// //go:embed directive'i derleyiciye hangi dosyaları gömeceğini söyler.
package database

import (
	"embed"
	"io/fs"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// EmbeddedMigrations, migration SQL dosyalarını kök dizinde sunan fs.FS döner.
// embed.FS dosyaları "migrations/001_init.sql" path'iyle tutar — fs.Sub ile
// "migrations/" prefix'i soyulur, böylece New() doğrudan "001_init.sql" görür.
func EmbeddedMigrations() fs.FS {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		// embed derleme zamanında sabittir — bu hata ancak paket içi
		// bir isim değişikliğinde görülür.
		panic(err)
	}
	return sub
}
