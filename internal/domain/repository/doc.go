// Package repository define las entidades del dominio y los contratos de
// persistencia que consume el resto del servicio.
//
// Las implementaciones viven en internal/store/* (pg, memory). Los services
// y el pipeline de despacho solo conocen estas interfaces, nunca un driver
// concreto.
package repository
