package main

import "captioner-backend/internal/app"

func main() {
	app.Run()
}
