// Package app implements the application service layer behind the HTTP
// handlers: account registration and login, room creation with unique
// join codes, and question listings.
package app
