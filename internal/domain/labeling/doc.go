// Package labeling contains the RFID label printing bounded context.
// This context covers tag identifier generation, print job lifecycle and
// the batch run aggregate that ties printed tags to purchase order lines.
package labeling
