// Package memory implementa los repositorios del dominio sobre mapas en
// memoria protegidos por mutex. Es el backend de desarrollo y de tests;
// respeta los mismos contratos (sentinelas incluidas) que el backend pg.
package memory
